package errors

// ErrorCode identifies an application error category. The string form is what
// clients see in the "error" field of error responses.
type ErrorCode int

const (
	ErrorCode_INTERNAL ErrorCode = iota
	ErrorCode_MISSING_PARAMETERS
	ErrorCode_INVALID_PAYLOAD
	ErrorCode_SERVER_NOT_CONFIGURED
	ErrorCode_CALL_NOT_FOUND
	ErrorCode_PROVIDER_ERROR
	ErrorCode_PROVIDER_TIMEOUT
	ErrorCode_INVALID_SIGNATURE
	ErrorCode_STORAGE_FAILED
	ErrorCode_SUMMARY_FAILED
	ErrorCode_HTTP_OK
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_INTERNAL:              "internal_error",
	ErrorCode_MISSING_PARAMETERS:    "missing_parameters",
	ErrorCode_INVALID_PAYLOAD:       "invalid_json",
	ErrorCode_SERVER_NOT_CONFIGURED: "server_not_configured",
	ErrorCode_CALL_NOT_FOUND:        "call_not_found",
	ErrorCode_PROVIDER_ERROR:        "elevenlabs_error",
	ErrorCode_PROVIDER_TIMEOUT:      "timeout",
	ErrorCode_INVALID_SIGNATURE:     "invalid_signature",
	ErrorCode_STORAGE_FAILED:        "storage_failed",
	ErrorCode_SUMMARY_FAILED:        "summary_failed",
	ErrorCode_HTTP_OK:               "ok",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "internal_error"
}
