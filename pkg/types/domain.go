package types

// Model describes the model identity served behind the gateway, as reported
// by GET /v1/models without waking a cold backend.
type Model struct {
	// Stable identifier, echoed from the gateway configuration.
	// example: llama-3.1-8b-instruct
	ID string `json:"id" example:"llama-3.1-8b-instruct"`
	// Constant "model" for OpenAI client compatibility.
	// example: model
	Object string `json:"object" example:"model"`
	// Owner label for listing output.
	// example: gatewayd
	OwnedBy string `json:"owned_by" example:"gatewayd"`
}
