package kagari

import (
	"strings"

	"github.com/pkg/errors"
)

// ParsedSignature is the decomposed HTTP Signature header. It is parsed
// synchronously at ingress and carried into the inbox job so the worker can
// reject garbage before any resolution work happens.
type ParsedSignature struct {
	KeyID     string   `json:"keyId"`
	Algorithm string   `json:"algorithm"`
	Headers   []string `json:"headers"`
	Signature string   `json:"signature"`
}

// ParseSignatureHeader decomposes a `Signature:` header value of the form
// keyId="...",algorithm="...",headers="...",signature="...".
func ParseSignatureHeader(header string) (*ParsedSignature, error) {
	if strings.TrimSpace(header) == "" {
		return nil, errors.New("empty signature header")
	}

	parsed := &ParsedSignature{}
	for _, part := range splitQuoted(header) {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return nil, errors.Errorf("malformed signature parameter %q", part)
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "keyId":
			parsed.KeyID = value
		case "algorithm":
			parsed.Algorithm = value
		case "headers":
			parsed.Headers = strings.Fields(value)
		case "signature":
			parsed.Signature = value
		}
	}

	if parsed.KeyID == "" {
		return nil, errors.New("signature header is missing keyId")
	}
	if parsed.Signature == "" {
		return nil, errors.New("signature header is missing signature")
	}
	if len(parsed.Headers) == 0 {
		// RFC draft default when the headers parameter is absent.
		parsed.Headers = []string{"date"}
	}
	return parsed, nil
}

// splitQuoted splits on commas that are not inside double quotes.
func splitQuoted(s string) []string {
	var parts []string
	var sb strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
