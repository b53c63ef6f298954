package types

// TierBillingCycle is the price/duration variant of a tier for one billing cycle.
type TierBillingCycle struct {
	// PriceMajor is the price in the major currency unit (no sub-units).
	PriceMajor int64 `json:"price_major" mapstructure:"price_major"`
	// DurationInDays is how long one paid period lasts.
	DurationInDays int `json:"duration_in_days" mapstructure:"duration_in_days"`
	// ProviderPlanCode is the provider-side recurring plan identifier.
	ProviderPlanCode string `json:"provider_plan_code" mapstructure:"provider_plan_code"`
}

// Tier is one entry of the admin-maintained tier catalog. The catalog is
// read-only to this service; it is loaded from configuration at startup.
type Tier struct {
	Name          string                             `json:"name" mapstructure:"name"`
	BillingCycles map[BillingCycle]*TierBillingCycle `json:"billing_cycles" mapstructure:"billing_cycles"`
}

func (t *Tier) Cycle(c BillingCycle) *TierBillingCycle {
	if t == nil {
		return nil
	}
	return t.BillingCycles[c]
}
