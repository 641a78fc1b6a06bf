package services

// Plan classifies a subscription product.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
	PlanUnknown Plan = "unknown"
)

// ProductCatalog maps App Store product ids to plans. Its key set is the
// allow-list of products accepted as subscriptions.
type ProductCatalog struct {
	plans map[string]Plan
}

// NewProductCatalog builds a catalog from the configured SKUs.
func NewProductCatalog(monthly, yearly []string) *ProductCatalog {
	c := &ProductCatalog{plans: make(map[string]Plan, len(monthly)+len(yearly))}
	for _, id := range monthly {
		c.plans[id] = PlanMonthly
	}
	for _, id := range yearly {
		c.plans[id] = PlanYearly
	}
	return c
}

// IsSubscription reports whether productID is a recognized subscription SKU.
func (c *ProductCatalog) IsSubscription(productID string) bool {
	_, ok := c.plans[productID]
	return ok
}

// PlanFor returns the plan of productID, PlanUnknown for anything not listed.
func (c *ProductCatalog) PlanFor(productID string) Plan {
	if plan, ok := c.plans[productID]; ok {
		return plan
	}
	return PlanUnknown
}
