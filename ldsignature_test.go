package kagari

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"testing"
)

func signLd(t *testing.T, priv *rsa.PrivateKey, document []byte, sig *LdSignature) string {
	t.Helper()
	data, err := ldVerifyData(document, sig)
	if err != nil {
		t.Fatalf("verify data: %v", err)
	}
	digest := sha256.Sum256(data)
	raw, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemStr := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	return priv, pemStr
}

func TestVerifyLdSignature(t *testing.T) {
	priv, pubPem := testKeyPair(t)

	sig := &LdSignature{
		Type:    LdSignatureType,
		Creator: "https://example.com/users/alice#main-key",
		Created: "2026-01-02T03:04:05Z",
	}
	document, _ := json.Marshal(map[string]any{
		"type":  "Create",
		"actor": "https://example.com/users/alice",
		"object": map[string]any{
			"id":      "https://example.com/notes/1",
			"type":    "Note",
			"content": "hello",
		},
	})
	sig.SignatureValue = signLd(t, priv, document, sig)

	if err := VerifyLdSignature(document, sig, pubPem); err != nil {
		t.Fatalf("expected valid signature: %v", err)
	}

	// Any change to the document must invalidate the signature.
	tampered, _ := json.Marshal(map[string]any{
		"type":  "Create",
		"actor": "https://example.com/users/mallory",
	})
	if err := VerifyLdSignature(tampered, sig, pubPem); err == nil {
		t.Fatal("expected tampered document to fail verification")
	}
}

func TestVerifyLdSignatureUnsupportedSuite(t *testing.T) {
	_, pubPem := testKeyPair(t)
	err := VerifyLdSignature([]byte(`{}`), &LdSignature{Type: "Ed25519Signature2020"}, pubPem)
	if err == nil {
		t.Fatal("expected unsupported suite to be rejected")
	}
}

func TestVerifyLdSignatureIgnoresSignatureBlock(t *testing.T) {
	priv, pubPem := testKeyPair(t)

	sig := &LdSignature{Type: LdSignatureType, Creator: "https://example.com/u/a#main-key"}
	document, _ := json.Marshal(map[string]any{"type": "Create", "actor": "https://example.com/u/a"})
	sig.SignatureValue = signLd(t, priv, document, sig)

	// The delivered document embeds the signature block itself; verification
	// must strip it before hashing.
	embedded, _ := json.Marshal(map[string]any{
		"type":      "Create",
		"actor":     "https://example.com/u/a",
		"signature": sig,
	})
	if err := VerifyLdSignature(embedded, sig, pubPem); err != nil {
		t.Fatalf("embedded signature block should be ignored: %v", err)
	}
}
