package gateway

import (
	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway adapts the Razorpay SDK to the Gateway interface, converting
// its map-shaped responses into the typed structs the services consume.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
	}
}

func (g *RazorpayGateway) CreateCustomer(profile CustomerProfile) (*CustomerCreated, error) {
	data := map[string]interface{}{
		"name":          profile.Name,
		"email":         profile.Email,
		"fail_existing": "0",
	}
	if profile.Phone != "" {
		data["contact"] = profile.Phone
	}

	resp, err := g.client.Customer.Create(data, nil)
	if err != nil {
		return nil, &Error{Op: "create customer", Err: err}
	}

	return &CustomerCreated{ID: asString(resp["id"])}, nil
}

func (g *RazorpayGateway) CreateSubscription(params SubscriptionParams) (*SubscriptionCreated, error) {
	data := map[string]interface{}{
		"plan_id":         params.PlanID,
		"customer_id":     params.CustomerID,
		"total_count":     params.TotalCount,
		"customer_notify": 1,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	resp, err := g.client.Subscription.Create(data, nil)
	if err != nil {
		return nil, &Error{Op: "create subscription", Err: err}
	}

	return &SubscriptionCreated{
		ID:       asString(resp["id"]),
		Status:   asString(resp["status"]),
		ShortURL: asString(resp["short_url"]),
	}, nil
}

func (g *RazorpayGateway) CancelSubscription(subscriptionID string, atCycleEnd bool) (*SubscriptionCancelled, error) {
	cancelAtCycleEnd := 0
	if atCycleEnd {
		cancelAtCycleEnd = 1
	}
	data := map[string]interface{}{
		"cancel_at_cycle_end": cancelAtCycleEnd,
	}

	resp, err := g.client.Subscription.Cancel(subscriptionID, data, nil)
	if err != nil {
		return nil, &Error{Op: "cancel subscription", Err: err}
	}

	return &SubscriptionCancelled{Status: asString(resp["status"])}, nil
}

func (g *RazorpayGateway) FetchPayment(paymentID string) (*PaymentFetched, error) {
	resp, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, &Error{Op: "fetch payment", Err: err}
	}

	status := asString(resp["status"])
	captured, _ := resp["captured"].(bool)

	return &PaymentFetched{
		ID:       asString(resp["id"]),
		Captured: captured || status == "captured",
		Amount:   asInt64(resp["amount"]),
		Currency: asString(resp["currency"]),
		Method:   asString(resp["method"]),
		Status:   status,
		OrderID:  asString(resp["order_id"]),
	}, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asInt64 handles the json decoder handing numeric fields back as float64.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
