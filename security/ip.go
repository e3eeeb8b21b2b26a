package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor resolves the client address of an inbound request.
//
// SECURITY CONSIDERATIONS:
// - Only enable TrustProxy when behind a trusted reverse proxy (nginx, haproxy, etc.)
// - X-Forwarded-For format: "client, proxy1, proxy2, ..."
// - TrustedProxyCount specifies how many proxies to trust from the right
type ClientIPExtractor struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP
	TrustProxy bool

	// TrustedProxyCount is the number of proxies in front of the relay (default: 1)
	TrustedProxyCount int
}

// ClientIP returns the client IP for r
func (e ClientIPExtractor) ClientIP(r *http.Request) string {
	return GetClientIP(r, e.TrustProxy, e.TrustedProxyCount)
}

// GetClientIP extracts the real client IP address from the request
// Supports X-Forwarded-For and X-Real-IP headers when behind a proxy
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := extractIPFromXFF(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := extractIPFromXRealIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return extractIPFromRemoteAddr(r.RemoteAddr)
}

// extractIPFromXFF parses the X-Forwarded-For header and extracts the client IP.
// The rightmost trustedProxyCount entries are our own proxies.
//
// Example with trustedProxyCount=2:
//
//	X-Forwarded-For: "1.2.3.4, untrusted-ip, proxy2-ip"
//	We extract: ips[len(ips) - trustedProxyCount - 1] = ips[0] = "1.2.3.4"
func extractIPFromXFF(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	ips := strings.Split(xff, ",")
	clientIP := strings.TrimSpace(ips[clientIPIndex(len(ips), trustedProxyCount)])

	if net.ParseIP(clientIP) != nil {
		return clientIP
	}
	return ""
}

// clientIPIndex returns the index of the client IP in an X-Forwarded-For list.
// trustedProxyCount=0 means one proxy. Short lists fall back to the leftmost entry.
func clientIPIndex(numIPs, trustedProxyCount int) int {
	proxyCount := trustedProxyCount
	if proxyCount == 0 {
		proxyCount = 1
	}

	idx := numIPs - proxyCount - 1
	if idx < 0 {
		return 0
	}
	return idx
}

// extractIPFromXRealIP parses the X-Real-IP header (set by some proxies).
func extractIPFromXRealIP(xri string) string {
	xri = strings.TrimSpace(xri)
	if xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return ""
}

// extractIPFromRemoteAddr extracts the IP from RemoteAddr for direct connections.
func extractIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
