package httperr

import "net/http"

// Client errors (4xx).

func BadRequest(message string, opts ...Option) *Error {
	return New(http.StatusBadRequest, message, opts...)
}

func Unauthorized(message string, opts ...Option) *Error {
	return New(http.StatusUnauthorized, message, opts...)
}

func PaymentRequired(message string, opts ...Option) *Error {
	return New(http.StatusPaymentRequired, message, opts...)
}

func Forbidden(message string, opts ...Option) *Error {
	return New(http.StatusForbidden, message, opts...)
}

func NotFound(message string, opts ...Option) *Error {
	return New(http.StatusNotFound, message, opts...)
}

func MethodNotAllowed(message string, opts ...Option) *Error {
	return New(http.StatusMethodNotAllowed, message, opts...)
}

func NotAcceptable(message string, opts ...Option) *Error {
	return New(http.StatusNotAcceptable, message, opts...)
}

func ProxyAuthRequired(message string, opts ...Option) *Error {
	return New(http.StatusProxyAuthRequired, message, opts...)
}

func RequestTimeout(message string, opts ...Option) *Error {
	return New(http.StatusRequestTimeout, message, opts...)
}

func Conflict(message string, opts ...Option) *Error {
	return New(http.StatusConflict, message, opts...)
}

func Gone(message string, opts ...Option) *Error {
	return New(http.StatusGone, message, opts...)
}

func LengthRequired(message string, opts ...Option) *Error {
	return New(http.StatusLengthRequired, message, opts...)
}

func PreconditionFailed(message string, opts ...Option) *Error {
	return New(http.StatusPreconditionFailed, message, opts...)
}

func PayloadTooLarge(message string, opts ...Option) *Error {
	return New(http.StatusRequestEntityTooLarge, message, opts...)
}

func URITooLong(message string, opts ...Option) *Error {
	return New(http.StatusRequestURITooLong, message, opts...)
}

func UnsupportedMediaType(message string, opts ...Option) *Error {
	return New(http.StatusUnsupportedMediaType, message, opts...)
}

func RangeNotSatisfiable(message string, opts ...Option) *Error {
	return New(http.StatusRequestedRangeNotSatisfiable, message, opts...)
}

func ExpectationFailed(message string, opts ...Option) *Error {
	return New(http.StatusExpectationFailed, message, opts...)
}

func Teapot(message string, opts ...Option) *Error {
	return New(http.StatusTeapot, message, opts...)
}

func MisdirectedRequest(message string, opts ...Option) *Error {
	return New(http.StatusMisdirectedRequest, message, opts...)
}

func PreconditionRequired(message string, opts ...Option) *Error {
	return New(http.StatusPreconditionRequired, message, opts...)
}

func TooManyRequests(message string, opts ...Option) *Error {
	return New(http.StatusTooManyRequests, message, opts...)
}

func RequestHeaderFieldsTooLarge(message string, opts ...Option) *Error {
	return New(http.StatusRequestHeaderFieldsTooLarge, message, opts...)
}

func UnavailableForLegalReasons(message string, opts ...Option) *Error {
	return New(http.StatusUnavailableForLegalReasons, message, opts...)
}

func ClientClosedRequest(message string, opts ...Option) *Error {
	return New(StatusClientClosedRequest, message, opts...)
}

// Server errors (5xx).

func Internal(message string, opts ...Option) *Error {
	return New(http.StatusInternalServerError, message, opts...)
}

func NotImplemented(message string, opts ...Option) *Error {
	return New(http.StatusNotImplemented, message, opts...)
}

func BadGateway(message string, opts ...Option) *Error {
	return New(http.StatusBadGateway, message, opts...)
}

func ServiceUnavailable(message string, opts ...Option) *Error {
	return New(http.StatusServiceUnavailable, message, opts...)
}

func GatewayTimeout(message string, opts ...Option) *Error {
	return New(http.StatusGatewayTimeout, message, opts...)
}

func HTTPVersionNotSupported(message string, opts ...Option) *Error {
	return New(http.StatusHTTPVersionNotSupported, message, opts...)
}

func VariantAlsoNegotiates(message string, opts ...Option) *Error {
	return New(http.StatusVariantAlsoNegotiates, message, opts...)
}
