// Package envelope defines the uniform response wrapper used by every
// endpoint: {code, msg, data}. The transport status is always 200 for
// application outcomes; the real result is carried in Code.
package envelope

// HTTP-equivalent codes (200-500) and business codes (600+). The two bands
// never overlap so clients can branch on a single number.
const (
	CodeSuccess          = 200
	CodeCreated          = 201
	CodeBadRequest       = 400
	CodeUnauthorized     = 401
	CodeForbidden        = 403
	CodeNotFound         = 404
	CodeMethodNotAllowed = 405
	CodeConflict         = 409
	CodeUnprocessable    = 422
	CodeTooManyRequests  = 429
	CodeInternalError    = 500

	CodeValidationError     = 600
	CodeUserNotFound        = 601
	CodeUserAlreadyExists   = 602
	CodeInvalidEmailFormat  = 603
	CodeInvalidToken        = 604
	CodeTokenExpired        = 605
	CodeDeviceNotAuthorized = 606
	CodeDatabaseConnection  = 700
	CodeExternalService     = 701
)

type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func Success(data interface{}, msg string) *Response {
	if msg == "" {
		msg = "Success"
	}
	return &Response{Code: CodeSuccess, Msg: msg, Data: data}
}

func Created(data interface{}, msg string) *Response {
	if msg == "" {
		msg = "Resource created successfully"
	}
	return &Response{Code: CodeCreated, Msg: msg, Data: data}
}

func Error(code int, msg string) *Response {
	return &Response{Code: code, Msg: msg, Data: nil}
}

func Validation(msg string) *Response {
	if msg == "" {
		msg = "Validation failed"
	}
	return &Response{Code: CodeValidationError, Msg: msg, Data: nil}
}

func NotFound(msg string) *Response {
	if msg == "" {
		msg = "Resource not found"
	}
	return &Response{Code: CodeNotFound, Msg: msg, Data: nil}
}

func UserNotFound() *Response {
	return &Response{Code: CodeUserNotFound, Msg: "User not found", Data: nil}
}

// ServerError redacts the message in production so internals never leak to
// callers.
func ServerError(msg string, production bool) *Response {
	if production || msg == "" {
		msg = "Internal Server Error"
	}
	return &Response{Code: CodeInternalError, Msg: msg, Data: nil}
}
