package handlers

// ErrorResponse is the JSON error envelope used by every handler
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errResp(code, message string) ErrorResponse {
	return ErrorResponse{Error: code, Message: message}
}
