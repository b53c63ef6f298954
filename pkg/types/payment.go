package types

type PaymentProvider string

const (
	PaymentProviderHostedGateway PaymentProvider = "hosted_gateway"
	PaymentProviderCardProcessor PaymentProvider = "card_processor"
	PaymentProviderManual        PaymentProvider = "manual"
)

func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderHostedGateway, PaymentProviderCardProcessor, PaymentProviderManual:
		return true
	}
	return false
}

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

type TransactionType string

const (
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypePlanChange   TransactionType = "upgrade/downgrade"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
	TransactionStatusPending TransactionStatus = "pending"
)
