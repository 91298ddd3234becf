package kagari

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"

	"github.com/pkg/errors"
)

// LdSignatureType is the one supported legacy signature suite.
const LdSignatureType = "RsaSignature2017"

// VerifyLdSignature checks the embedded legacy signature of an activity
// document against a PEM public key. Canonicalization is deterministic
// JSON (sorted keys, no whitespace) over the document without its
// signature block, prefixed with the hash of the signature options.
//
// This is not URDNA2015 RDF normalization. Producers that sign the
// normalized N-Quads form of the document will not verify here; only
// signatures made over the same deterministic JSON form do.
func VerifyLdSignature(document []byte, sig *LdSignature, publicKeyPem string) error {
	if sig == nil {
		return errors.New("no embedded signature")
	}
	if sig.Type != LdSignatureType {
		return errors.Errorf("unsupported signature type %s", sig.Type)
	}

	pub, err := ParseRSAPublicKey(publicKeyPem)
	if err != nil {
		return err
	}

	signed, err := ldVerifyData(document, sig)
	if err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(sig.SignatureValue)
	if err != nil {
		return errors.Wrap(err, "signature value is not base64")
	}

	digest := sha256.Sum256(signed)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], raw); err != nil {
		return errors.Wrap(err, "ld signature verification failed")
	}
	return nil
}

func ldVerifyData(document []byte, sig *LdSignature) ([]byte, error) {
	options := map[string]any{
		"@context": "https://w3id.org/identity/v1",
		"creator":  sig.Creator,
	}
	if sig.Created != "" {
		options["created"] = sig.Created
	}
	if sig.Domain != "" {
		options["domain"] = sig.Domain
	}
	if sig.Nonce != "" {
		options["nonce"] = sig.Nonce
	}

	optionsHash, err := canonicalHash(options)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, errors.Wrap(err, "activity document is not an object")
	}
	delete(doc, "signature")

	docHash, err := canonicalHash(doc)
	if err != nil {
		return nil, err
	}

	return append([]byte(optionsHash), docHash...), nil
}

// canonicalHash hashes deterministic JSON; encoding/json already emits map
// keys in sorted order.
func canonicalHash(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ParseRSAPublicKey decodes a PEM-encoded RSA public key.
func ParseRSAPublicKey(pemString string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemString))
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Some servers publish PKCS#1 keys.
		if rsaPub, err1 := x509.ParsePKCS1PublicKey(block.Bytes); err1 == nil {
			return rsaPub, nil
		}
		return nil, errors.Wrap(err, "failed to parse public key")
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}
