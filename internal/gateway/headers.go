// Header hygiene for transparent forwarding.
//
// DESIGN: Hop-by-hop headers describe one connection and are never relayed
// in either direction. Tokens listed in a Connection header are treated as
// hop-by-hop too. Content-Encoding is dropped from responses because the
// relayed body is always decoded.
package gateway

import (
	"net/http"
	"net/textproto"
	"strings"
)

// IsHopByHopHeader reports whether name must not cross the proxy.
// Comparison is case-insensitive.
func IsHopByHopHeader(name string) bool {
	switch strings.ToLower(name) {
	case "connection",
		"keep-alive",
		"proxy-authenticate",
		"proxy-authorization",
		"proxy-connection",
		"te",
		"trailer",
		"trailers",
		"transfer-encoding",
		"upgrade",
		"host":
		return true
	}
	return false
}

// connectionTokens returns the header names listed in Connection headers.
func connectionTokens(h http.Header) map[string]bool {
	var tokens map[string]bool
	for _, v := range h.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				if tokens == nil {
					tokens = make(map[string]bool)
				}
				tokens[textproto.CanonicalMIMEHeaderKey(tok)] = true
			}
		}
	}
	return tokens
}

// copyRequestHeaders copies client headers onto the outbound request.
// Accept-Encoding is left to the transport so the response arrives decoded.
func copyRequestHeaders(dst, src http.Header) {
	listed := connectionTokens(src)
	for name, values := range src {
		if IsHopByHopHeader(name) || listed[name] {
			continue
		}
		switch textproto.CanonicalMIMEHeaderKey(name) {
		case "Accept-Encoding", "Content-Length":
			continue
		}
		dst[name] = append([]string(nil), values...)
	}
}

// copyResponseHeaders copies upstream headers onto the client response,
// minus hop-by-hop headers, Content-Encoding, and Content-Length (set by
// the caller once the body length is known).
func copyResponseHeaders(dst, src http.Header) {
	listed := connectionTokens(src)
	for name, values := range src {
		if IsHopByHopHeader(name) || listed[name] {
			continue
		}
		switch textproto.CanonicalMIMEHeaderKey(name) {
		case "Content-Encoding", "Content-Length":
			continue
		}
		dst[name] = append([]string(nil), values...)
	}
}
