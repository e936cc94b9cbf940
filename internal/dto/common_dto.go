package dto

// APIResponse is the envelope every lifecycle endpoint returns. Code is set
// only on failure and carries the stable taxonomy value.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func OK(message string, data interface{}) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

func Fail(message, code string) APIResponse {
	return APIResponse{Success: false, Message: message, Code: code}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	PlanCount int    `json:"plan_count"`
}
