package webauthn

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

const (
	testOrigin    = "https://fileward.test"
	testChallenge = "Y2hhbGxlbmdlLTEyMw"
)

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func clientDataFor(t *testing.T, ceremony, challenge, origin string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"type":      ceremony,
		"challenge": challenge,
		"origin":    origin,
	})
	if err != nil {
		t.Fatalf("marshal client data: %v", err)
	}
	return raw
}

func authDataFor(flags byte, counter uint32) []byte {
	rpIDHash := sha256.Sum256([]byte("fileward.test"))
	data := make([]byte, 0, authDataMinLen)
	data = append(data, rpIDHash[:]...)
	data = append(data, flags)
	data = binary.BigEndian.AppendUint32(data, counter)
	return data
}

func coseEd25519(t *testing.T, pub ed25519.PublicKey) []byte {
	t.Helper()
	encoded, err := cbor.Marshal(map[int]any{
		1:  ktyOKP,
		3:  algEdDSA,
		-2: []byte(pub),
	})
	if err != nil {
		t.Fatalf("marshal COSE key: %v", err)
	}
	return encoded
}

func coseES256(t *testing.T, pub *ecdsa.PublicKey) []byte {
	t.Helper()
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	encoded, err := cbor.Marshal(map[int]any{
		1:  ktyEC2,
		3:  algES256,
		-1: 1, // P-256
		-2: x,
		-3: y,
	})
	if err != nil {
		t.Fatalf("marshal COSE key: %v", err)
	}
	return encoded
}

// signedPayload is what the authenticator signs during an assertion.
func signedPayload(authData, clientDataRaw []byte) []byte {
	hash := sha256.Sum256(clientDataRaw)
	return append(append([]byte{}, authData...), hash[:]...)
}

func TestVerifyAssertionEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clientDataRaw := clientDataFor(t, ceremonyGet, testChallenge, testOrigin)
	authData := authDataFor(flagUserPresent, 42)
	sig := ed25519.Sign(priv, signedPayload(authData, clientDataRaw))

	result, err := NewVerifier().VerifyAssertion(testChallenge, testOrigin, coseEd25519(t, pub), &AssertionResponse{
		ClientDataJSON:    b64(clientDataRaw),
		AuthenticatorData: b64(authData),
		Signature:         b64(sig),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Verified {
		t.Error("assertion should verify")
	}
	if result.NewCounter != 42 {
		t.Errorf("counter = %d, want 42", result.NewCounter)
	}
}

func TestVerifyAssertionES256(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clientDataRaw := clientDataFor(t, ceremonyGet, testChallenge, testOrigin)
	authData := authDataFor(flagUserPresent, 7)
	digest := sha256.Sum256(signedPayload(authData, clientDataRaw))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	result, err := NewVerifier().VerifyAssertion(testChallenge, testOrigin, coseES256(t, &priv.PublicKey), &AssertionResponse{
		ClientDataJSON:    b64(clientDataRaw),
		AuthenticatorData: b64(authData),
		Signature:         b64(sig),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Verified || result.NewCounter != 7 {
		t.Errorf("result = %+v, want verified with counter 7", result)
	}
}

func TestVerifyAssertionRejections(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key := coseEd25519(t, pub)

	sign := func(clientDataRaw, authData []byte) *AssertionResponse {
		sig := ed25519.Sign(priv, signedPayload(authData, clientDataRaw))
		return &AssertionResponse{
			ClientDataJSON:    b64(clientDataRaw),
			AuthenticatorData: b64(authData),
			Signature:         b64(sig),
		}
	}

	good := authDataFor(flagUserPresent, 1)

	tests := []struct {
		name     string
		response *AssertionResponse
		want     error
	}{
		{
			"wrong origin",
			sign(clientDataFor(t, ceremonyGet, testChallenge, "https://evil.example"), good),
			ErrVerificationFailed,
		},
		{
			"wrong challenge",
			sign(clientDataFor(t, ceremonyGet, "c3RhbGU", testOrigin), good),
			ErrVerificationFailed,
		},
		{
			"registration ceremony on assertion",
			sign(clientDataFor(t, ceremonyCreate, testChallenge, testOrigin), good),
			ErrVerificationFailed,
		},
		{
			"user-present flag unset",
			sign(clientDataFor(t, ceremonyGet, testChallenge, testOrigin), authDataFor(0x00, 1)),
			ErrVerificationFailed,
		},
		{
			"truncated authenticator data",
			sign(clientDataFor(t, ceremonyGet, testChallenge, testOrigin), good[:20]),
			ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier().VerifyAssertion(testChallenge, testOrigin, key, tt.response)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyAssertionTamperedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clientDataRaw := clientDataFor(t, ceremonyGet, testChallenge, testOrigin)
	authData := authDataFor(flagUserPresent, 1)
	sig := ed25519.Sign(priv, signedPayload(authData, clientDataRaw))
	sig[0] ^= 0xff

	_, err = NewVerifier().VerifyAssertion(testChallenge, testOrigin, coseEd25519(t, pub), &AssertionResponse{
		ClientDataJSON:    b64(clientDataRaw),
		AuthenticatorData: b64(authData),
		Signature:         b64(sig),
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Errorf("got %v, want ErrVerificationFailed", err)
	}
}

func attestationFor(t *testing.T, credentialID, coseKey []byte, flags byte, counter uint32) []byte {
	t.Helper()
	authData := authDataFor(flags, counter)
	authData = append(authData, make([]byte, 16)...) // aaguid
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(credentialID)))
	authData = append(authData, credentialID...)
	authData = append(authData, coseKey...)

	raw, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		t.Fatalf("marshal attestation object: %v", err)
	}
	return raw
}

func TestVerifyRegistration(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	credentialID := []byte{0xde, 0xad, 0xbe, 0xef}
	coseKey := coseEd25519(t, pub)

	clientDataRaw := clientDataFor(t, ceremonyCreate, testChallenge, testOrigin)
	attestation := attestationFor(t, credentialID, coseKey, flagUserPresent|flagAttestedCredential, 3)

	credential, err := NewVerifier().VerifyRegistration(testChallenge, testOrigin, &RegistrationResponse{
		ClientDataJSON:    b64(clientDataRaw),
		AttestationObject: b64(attestation),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if credential.ID != b64(credentialID) {
		t.Errorf("credential id = %q, want %q", credential.ID, b64(credentialID))
	}
	if string(credential.PublicKey) != string(coseKey) {
		t.Error("stored public key differs from the attested COSE key")
	}
	if credential.Counter != 3 {
		t.Errorf("counter = %d, want 3", credential.Counter)
	}
}

func TestVerifyRegistrationCredentialIDMismatch(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clientDataRaw := clientDataFor(t, ceremonyCreate, testChallenge, testOrigin)
	attestation := attestationFor(t, []byte{1, 2, 3}, coseEd25519(t, pub), flagUserPresent|flagAttestedCredential, 0)

	_, err = NewVerifier().VerifyRegistration(testChallenge, testOrigin, &RegistrationResponse{
		CredentialID:      b64([]byte{9, 9, 9}),
		ClientDataJSON:    b64(clientDataRaw),
		AttestationObject: b64(attestation),
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Errorf("got %v, want ErrVerificationFailed", err)
	}
}

func TestVerifyRegistrationWithoutAttestedCredential(t *testing.T) {
	clientDataRaw := clientDataFor(t, ceremonyCreate, testChallenge, testOrigin)
	authData := authDataFor(flagUserPresent, 0)

	raw, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		t.Fatalf("marshal attestation object: %v", err)
	}

	_, err = NewVerifier().VerifyRegistration(testChallenge, testOrigin, &RegistrationResponse{
		ClientDataJSON:    b64(clientDataRaw),
		AttestationObject: b64(raw),
	})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("got %v, want ErrMalformedResponse", err)
	}
}
