package api

// Wire structs for the OpenAI-compatible chat completions endpoint. Only
// the fields this tool sends or reads are modeled; unknown response fields
// are ignored on decode.

// ChatCompletionRequest is the request body for a single completion call
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	N              int             `json:"n,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat requests structured output; Type is "text" or "json_object"
type ResponseFormat struct {
	Type string `json:"type"`
}

// Message is one chat turn
type Message struct {
	Role    string `json:"role"` // system or user
	Content string `json:"content"`
}

// ChatCompletionResponse is the subset of the completion response the
// client consumes
type ChatCompletionResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion candidate
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ErrorResponse is the error envelope OpenAI-compatible servers return
// with non-2xx statuses
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
