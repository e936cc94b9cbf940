package gateway

// Gateway is the payment provider client used by the lifecycle flows. The
// provider is authoritative for money movement only; plan access decisions
// always come from the local ledger.
type Gateway interface {
	CreateCustomer(profile CustomerProfile) (*CustomerCreated, error)
	CreateSubscription(params SubscriptionParams) (*SubscriptionCreated, error)
	CancelSubscription(subscriptionID string, atCycleEnd bool) (*SubscriptionCancelled, error)
	FetchPayment(paymentID string) (*PaymentFetched, error)
}

type CustomerProfile struct {
	Name  string
	Email string
	Phone string
}

type SubscriptionParams struct {
	PlanID     string
	CustomerID string
	TotalCount int
	Notes      map[string]interface{}
}

// Per-operation response structs instead of the SDK's untyped maps.

type CustomerCreated struct {
	ID string
}

type SubscriptionCreated struct {
	ID       string
	Status   string
	ShortURL string
}

type SubscriptionCancelled struct {
	Status string
}

type PaymentFetched struct {
	ID       string
	Captured bool
	Amount   int64
	Currency string
	Method   string
	Status   string
	OrderID  string
}
