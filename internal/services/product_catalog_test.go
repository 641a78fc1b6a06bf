package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductCatalog(t *testing.T) {
	catalog := NewProductCatalog([]string{"app.monthly"}, []string{"app.yearly", "app.annual"})

	tests := []struct {
		productID    string
		subscription bool
		plan         Plan
	}{
		{"app.monthly", true, PlanMonthly},
		{"app.yearly", true, PlanYearly},
		{"app.annual", true, PlanYearly},
		{"app.coins_100", false, PlanUnknown},
		{"", false, PlanUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.productID, func(t *testing.T) {
			assert.Equal(t, tt.subscription, catalog.IsSubscription(tt.productID))
			assert.Equal(t, tt.plan, catalog.PlanFor(tt.productID))
		})
	}
}
