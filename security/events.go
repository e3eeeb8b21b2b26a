package security

// Event type constants for security audit logging.
const (
	// EventExchangeSucceeded is logged when a code was exchanged and the
	// account connected downstream
	EventExchangeSucceeded = "exchange_succeeded"

	// EventExchangeFailed is logged when any step of the exchange fails
	EventExchangeFailed = "exchange_failed"

	// EventDebugAccessDenied is logged when the debug endpoint rejects a token
	EventDebugAccessDenied = "debug_access_denied"
)
