package response

// Error is the body of a failed request.
type Error struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Extras  ErrorExtras `json:"extras"`
}

// ErrorExtras carries the reason a request failed. ErrorCode is the
// machine-readable code of a rejected match operation.
type ErrorExtras struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (e Error) Error() string {
	return e.Extras.Message
}

func NewError(code int, errorCode, message string) Error {
	return Error{
		Success: false,
		Code:    code,
		Extras: ErrorExtras{
			Message:   message,
			ErrorCode: errorCode,
		},
	}
}
