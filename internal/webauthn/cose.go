package webauthn

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE algorithm identifiers (RFC 9053).
const (
	algES256 = -7
	algEdDSA = -8
	algRS256 = -257
)

// COSE key types.
const (
	ktyOKP = 1
	ktyEC2 = 2
	ktyRSA = 3
)

var ErrUnsupportedKey = errors.New("unsupported COSE key")

// publicKey can verify a WebAuthn signature.
type publicKey interface {
	verify(data, sig []byte) error
}

// parseCOSEKey decodes a CBOR COSE_Key into a verifiable key.
func parseCOSEKey(encoded []byte) (publicKey, error) {
	// Kty decides how the negative labels are interpreted, so decode it
	// first and then re-decode into the shape that matches.
	var header struct {
		Kty int `cbor:"1,keyasint"`
		Alg int `cbor:"3,keyasint"`
	}
	err := cbor.Unmarshal(encoded, &header)
	if err != nil {
		return nil, fmt.Errorf("%w: not a COSE key: %v", ErrUnsupportedKey, err)
	}

	switch header.Kty {
	case ktyEC2:
		var k struct {
			Curve int    `cbor:"-1,keyasint"`
			X     []byte `cbor:"-2,keyasint"`
			Y     []byte `cbor:"-3,keyasint"`
		}
		err = cbor.Unmarshal(encoded, &k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad EC2 key: %v", ErrUnsupportedKey, err)
		}
		return newEC2Key(k.Curve, k.X, k.Y)
	case ktyOKP:
		var k struct {
			X []byte `cbor:"-2,keyasint"`
		}
		err = cbor.Unmarshal(encoded, &k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad OKP key: %v", ErrUnsupportedKey, err)
		}
		if len(k.X) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: bad Ed25519 key length %d", ErrUnsupportedKey, len(k.X))
		}
		return okpKey{key: ed25519.PublicKey(k.X)}, nil
	case ktyRSA:
		var k struct {
			N []byte `cbor:"-1,keyasint"`
			E []byte `cbor:"-2,keyasint"`
		}
		err = cbor.Unmarshal(encoded, &k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad RSA key: %v", ErrUnsupportedKey, err)
		}
		return rsaKey{key: &rsa.PublicKey{
			N: new(big.Int).SetBytes(k.N),
			E: int(new(big.Int).SetBytes(k.E).Int64()),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: kty %d", ErrUnsupportedKey, header.Kty)
	}
}

// ec2Key verifies ES256 signatures (ASN.1 DER encoded r,s over SHA-256).
type ec2Key struct {
	key *ecdsa.PublicKey
}

func newEC2Key(curve int, x, y []byte) (publicKey, error) {
	// COSE crv 1 = P-256, the only EC2 curve WebAuthn authenticators
	// commonly emit.
	if curve != 1 {
		return nil, fmt.Errorf("%w: EC2 curve %d", ErrUnsupportedKey, curve)
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("%w: point not on curve", ErrUnsupportedKey)
	}
	return ec2Key{key: pub}, nil
}

func (k ec2Key) verify(data, sig []byte) error {
	var parsed struct {
		R, S *big.Int
	}
	_, err := asn1.Unmarshal(sig, &parsed)
	if err != nil {
		return fmt.Errorf("bad ECDSA signature encoding: %w", err)
	}
	digest := sha256.Sum256(data)
	if !ecdsa.Verify(k.key, digest[:], parsed.R, parsed.S) {
		return errors.New("ECDSA signature invalid")
	}
	return nil
}

// okpKey verifies EdDSA signatures.
type okpKey struct {
	key ed25519.PublicKey
}

func (k okpKey) verify(data, sig []byte) error {
	if !ed25519.Verify(k.key, data, sig) {
		return errors.New("Ed25519 signature invalid")
	}
	return nil
}

// rsaKey verifies RS256 signatures.
type rsaKey struct {
	key *rsa.PublicKey
}

func (k rsaKey) verify(data, sig []byte) error {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(k.key, crypto.SHA256, digest[:], sig)
}

// attestationObject is the CBOR envelope of a registration response.
type attestationObject struct {
	Format   string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
	AuthData []byte          `cbor:"authData"`
}

// parseAttestationObject pulls the authenticator data out of the CBOR
// attestation envelope. The attestation statement is not evaluated.
func parseAttestationObject(raw []byte) ([]byte, error) {
	var att attestationObject
	err := cbor.Unmarshal(raw, &att)
	if err != nil {
		return nil, fmt.Errorf("%w: bad attestation object: %v", ErrMalformedResponse, err)
	}
	if len(att.AuthData) == 0 {
		return nil, fmt.Errorf("%w: attestation object missing authData", ErrMalformedResponse)
	}
	return att.AuthData, nil
}

// firstCBORItem returns the encoding of the first complete CBOR item in
// raw, leaving any trailing bytes (WebAuthn extensions) behind.
func firstCBORItem(raw []byte) ([]byte, error) {
	dec := cbor.NewDecoder(bytes.NewReader(raw))
	var item cbor.RawMessage
	err := dec.Decode(&item)
	if err != nil {
		return nil, fmt.Errorf("%w: bad COSE key encoding: %v", ErrMalformedResponse, err)
	}
	return raw[:dec.NumBytesRead()], nil
}
