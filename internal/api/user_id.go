package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UserID accepts a user id sent either as a JSON string or a JSON number.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("userId must be a string or number")
	}
	*u = UserID(n.String())
	return nil
}
