package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a webhook signature header against the raw request
// body and the shared secret.
//
// With no secret configured every request passes: open mode, insecure by
// default, for local development against providers that do not sign. With a
// secret configured a missing or malformed header always fails.
//
// Two header shapes are accepted:
//
//   - composite: comma-separated key=value pairs carrying a timestamp and a
//     signature, e.g. "t=1712345678,v0=<hex>". The provider's exact signed
//     canonicalization is not documented, so the HMAC-SHA256 is recomputed
//     over several candidates (body alone; timestamp joined to the body with
//     ".", ":" or nothing) and any match accepts.
//   - simple: a bare hex digest, optionally behind a scheme prefix such as
//     "sha256=<hex>", computed over the raw body.
//
// Hex digests compare case-insensitively in constant time.
func VerifySignature(rawBody []byte, header, secret string) bool {
	if secret == "" {
		return true
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}

	if timestamp, signature, ok := parseCompositeHeader(header); ok {
		candidates := [][]byte{
			rawBody,
			[]byte(timestamp + "." + string(rawBody)),
			[]byte(timestamp + ":" + string(rawBody)),
			[]byte(timestamp + string(rawBody)),
		}
		for _, candidate := range candidates {
			if digestMatches(candidate, signature, secret) {
				return true
			}
		}
		return false
	}

	return digestMatches(rawBody, stripScheme(header), secret)
}

// parseCompositeHeader extracts the timestamp and signature fields from a
// comma-separated key=value header. Returns ok=false when the header does not
// carry both, in which case the simple scheme applies.
func parseCompositeHeader(header string) (timestamp, signature string, ok bool) {
	if !strings.Contains(header, ",") {
		return "", "", false
	}
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.ToLower(key) {
		case "t", "timestamp":
			timestamp = value
		case "v0", "v1", "s", "signature":
			signature = value
		}
	}
	return timestamp, signature, timestamp != "" && signature != ""
}

// stripScheme removes an optional "scheme=" prefix from a simple signature.
func stripScheme(header string) string {
	if _, digest, found := strings.Cut(header, "="); found {
		return digest
	}
	return header
}

// digestMatches recomputes the HMAC-SHA256 of payload and compares it to the
// provided hex digest in constant time, ignoring case.
func digestMatches(payload []byte, providedHex, secret string) bool {
	if providedHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(providedHex)))
}
