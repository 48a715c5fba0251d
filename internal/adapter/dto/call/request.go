package call

// InitiateCallRequest is the body of POST /calls.
type InitiateCallRequest struct {
	ToNumber     string `json:"to_number" validate:"required"`
	Prompt       string `json:"prompt" validate:"required"`
	ReceiverName string `json:"receiver_name"`
	UserName     string `json:"username"`
}
