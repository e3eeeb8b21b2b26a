package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// EventRecorder receives a notification for every audit event that is logged.
// *instrumentation.Instrumentation satisfies it.
type EventRecorder interface {
	RecordAuditEvent(eventType string)
}

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger   *slog.Logger
	enabled  bool
	recorder EventRecorder
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// SetRecorder attaches a recorder that is notified of each logged event.
func (a *Auditor) SetRecorder(r EventRecorder) {
	a.recorder = r
}

// Event represents a security audit event
type Event struct {
	Type          string
	WalletAddress string
	IPAddress     string
	RequestID     string
	Details       map[string]any
	Timestamp     time.Time
}

// LogEvent logs a security event. Wallet addresses are hashed so that audit
// logs can be correlated without building a wallet/IP index.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"wallet_hash", hashForLogging(event.WalletAddress),
		"ip_address", event.IPAddress,
		"request_id", event.RequestID,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)

	if a.recorder != nil {
		a.recorder.RecordAuditEvent(event.Type)
	}
}

// LogExchangeSucceeded logs a completed exchange-and-connect.
func (a *Auditor) LogExchangeSucceeded(walletAddress, ipAddress, requestID string) {
	a.LogEvent(Event{
		Type:          EventExchangeSucceeded,
		WalletAddress: walletAddress,
		IPAddress:     ipAddress,
		RequestID:     requestID,
	})
}

// LogExchangeFailed logs a failed exchange-and-connect with its failure kind and status.
func (a *Auditor) LogExchangeFailed(walletAddress, ipAddress, requestID, kind string, status int) {
	a.LogEvent(Event{
		Type:          EventExchangeFailed,
		WalletAddress: walletAddress,
		IPAddress:     ipAddress,
		RequestID:     requestID,
		Details: map[string]any{
			"kind":   kind,
			"status": status,
		},
	})
}

// LogDebugAccessDenied logs a rejected request to the debug endpoint
func (a *Auditor) LogDebugAccessDenied(ipAddress, requestID, reason string) {
	a.LogEvent(Event{
		Type:      EventDebugAccessDenied,
		IPAddress: ipAddress,
		RequestID: requestID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
