package kagari

import "testing"

func TestParseSignatureHeader(t *testing.T) {
	header := `keyId="https://example.com/users/alice#main-key",algorithm="rsa-sha256",headers="(request-target) host date digest",signature="c2lnbmF0dXJl"`

	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.KeyID != "https://example.com/users/alice#main-key" {
		t.Fatalf("unexpected keyId %q", parsed.KeyID)
	}
	if parsed.Algorithm != "rsa-sha256" {
		t.Fatalf("unexpected algorithm %q", parsed.Algorithm)
	}
	if len(parsed.Headers) != 4 || parsed.Headers[0] != "(request-target)" {
		t.Fatalf("unexpected headers %v", parsed.Headers)
	}
	if parsed.Signature != "c2lnbmF0dXJl" {
		t.Fatalf("unexpected signature %q", parsed.Signature)
	}
}

func TestParseSignatureHeaderDefaultsHeaders(t *testing.T) {
	parsed, err := ParseSignatureHeader(`keyId="https://example.com/k#main-key",signature="eA=="`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(parsed.Headers) != 1 || parsed.Headers[0] != "date" {
		t.Fatalf("expected default headers [date], got %v", parsed.Headers)
	}
}

func TestParseSignatureHeaderRejectsGarbage(t *testing.T) {
	for _, header := range []string{
		"",
		"   ",
		`algorithm="rsa-sha256",signature="eA=="`,
		`keyId="https://example.com/k"`,
	} {
		if _, err := ParseSignatureHeader(header); err == nil {
			t.Errorf("expected error for %q", header)
		}
	}
}

func TestParseSignatureHeaderQuotedCommas(t *testing.T) {
	parsed, err := ParseSignatureHeader(`keyId="https://example.com/k,v#main-key",signature="eA=="`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.KeyID != "https://example.com/k,v#main-key" {
		t.Fatalf("comma inside quotes mangled: %q", parsed.KeyID)
	}
}
