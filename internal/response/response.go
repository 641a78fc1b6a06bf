package response

import (
	"github.com/gin-gonic/gin"
)

// Response represents an error or message-only API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Error returns an error response
func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// Message returns a success response carrying only a message
func Message(message string) Response {
	return Response{
		Success: true,
		Message: message,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, body interface{}) {
	c.JSON(statusCode, body)
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(message))
}
