package dto

type RazorpayWebhook struct {
	Entity    string                 `json:"entity"`
	AccountID string                 `json:"account_id"`
	Event     string                 `json:"event"`
	Contains  []string               `json:"contains"`
	CreatedAt int64                  `json:"created_at"`
	Payload   RazorpayWebhookPayload `json:"payload"`
}

type RazorpayWebhookPayload struct {
	Payment      *RazorpayPaymentWrapper      `json:"payment,omitempty"`
	Subscription *RazorpaySubscriptionWrapper `json:"subscription,omitempty"`
}

type RazorpayPaymentWrapper struct {
	Entity RazorpayPaymentEntity `json:"entity"`
}

type RazorpaySubscriptionWrapper struct {
	Entity RazorpaySubscriptionEntity `json:"entity"`
}

type RazorpayPaymentEntity struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Method         string `json:"method"`
	OrderID        string `json:"order_id"`
	InvoiceID      string `json:"invoice_id"`
	Captured       bool   `json:"captured"`
	Email          string `json:"email"`
	Contact        string `json:"contact"`
	ErrorCode      string `json:"error_code"`
	CreatedAt      int64  `json:"created_at"`
}

type RazorpaySubscriptionEntity struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	PaidCount  int    `json:"paid_count"`
	TotalCount int    `json:"total_count"`
	CreatedAt  int64  `json:"created_at"`
}
