// Package webauthn verifies public-key credential assertions and parses
// registration attestations. The access-control core feeds it a challenge,
// an expected origin and the stored key/counter, and consumes only the
// verified flag and the authenticator's reported counter.
package webauthn

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	ceremonyGet    = "webauthn.get"
	ceremonyCreate = "webauthn.create"

	// authenticator data layout: rpIdHash(32) || flags(1) || counter(4)
	authDataMinLen = 37

	flagUserPresent        = 0x01
	flagAttestedCredential = 0x40
)

var (
	ErrVerificationFailed = errors.New("assertion verification failed")
	ErrMalformedResponse  = errors.New("malformed authenticator response")
)

// AssertionResponse is the credential material a client presents when
// finishing an assertion. Binary fields travel base64url-encoded.
type AssertionResponse struct {
	CredentialID      string `json:"credentialId"`
	ClientDataJSON    string `json:"clientDataJson"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
}

// RegistrationResponse is the material presented when finishing a
// registration ceremony.
type RegistrationResponse struct {
	CredentialID      string `json:"credentialId"`
	ClientDataJSON    string `json:"clientDataJson"`
	AttestationObject string `json:"attestationObject"`
	Transports        string `json:"transports"`
}

// Result is all the core protocol reads out of a verification.
type Result struct {
	Verified   bool
	NewCounter uint32
}

// Credential is what registration parsing yields for persistence.
type Credential struct {
	ID        string
	PublicKey []byte // COSE-encoded
	Counter   uint32
}

// Verifier is the collaborator interface consumed by the device-mode
// verifier. Implementations must not interpret counters beyond reporting
// them; monotonicity enforcement belongs to the caller.
type Verifier interface {
	VerifyAssertion(challenge, origin string, publicKey []byte, response *AssertionResponse) (*Result, error)
	VerifyRegistration(challenge, origin string, response *RegistrationResponse) (*Credential, error)
}

type verifier struct{}

// NewVerifier returns the standard CBOR/COSE-backed verifier.
func NewVerifier() Verifier {
	return &verifier{}
}

// clientData is the parsed clientDataJSON envelope.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

func decodeB64(field, s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s encoding", ErrMalformedResponse, field)
	}
	return b, nil
}

// checkClientData validates the envelope against the expected ceremony,
// challenge and origin.
func checkClientData(raw []byte, ceremony, challenge, origin string) error {
	var cd clientData
	err := json.Unmarshal(raw, &cd)
	if err != nil {
		return fmt.Errorf("%w: bad clientDataJSON", ErrMalformedResponse)
	}
	if cd.Type != ceremony {
		return fmt.Errorf("%w: unexpected ceremony type %q", ErrVerificationFailed, cd.Type)
	}
	if cd.Challenge != challenge {
		return fmt.Errorf("%w: challenge mismatch", ErrVerificationFailed)
	}
	if cd.Origin != origin {
		return fmt.Errorf("%w: origin mismatch", ErrVerificationFailed)
	}
	return nil
}

// VerifyAssertion checks the signature over authenticatorData || SHA-256 of
// clientDataJSON against the stored COSE key and reports the counter the
// authenticator claims.
func (v *verifier) VerifyAssertion(challenge, origin string, publicKey []byte, response *AssertionResponse) (*Result, error) {
	clientDataRaw, err := decodeB64("clientDataJson", response.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	authData, err := decodeB64("authenticatorData", response.AuthenticatorData)
	if err != nil {
		return nil, err
	}
	sig, err := decodeB64("signature", response.Signature)
	if err != nil {
		return nil, err
	}

	if len(authData) < authDataMinLen {
		return nil, fmt.Errorf("%w: authenticator data too short", ErrMalformedResponse)
	}

	err = checkClientData(clientDataRaw, ceremonyGet, challenge, origin)
	if err != nil {
		return nil, err
	}

	if authData[32]&flagUserPresent == 0 {
		return nil, fmt.Errorf("%w: user-present flag not set", ErrVerificationFailed)
	}

	key, err := parseCOSEKey(publicKey)
	if err != nil {
		return nil, err
	}

	clientDataHash := sha256.Sum256(clientDataRaw)
	signed := append(append([]byte{}, authData...), clientDataHash[:]...)

	err = key.verify(signed, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return &Result{
		Verified:   true,
		NewCounter: binary.BigEndian.Uint32(authData[33:37]),
	}, nil
}

// VerifyRegistration validates a registration ceremony and extracts the new
// credential. Attestation statements are not evaluated ("none" trust model);
// the credential id and COSE key come from the attested credential data.
func (v *verifier) VerifyRegistration(challenge, origin string, response *RegistrationResponse) (*Credential, error) {
	clientDataRaw, err := decodeB64("clientDataJson", response.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	attestation, err := decodeB64("attestationObject", response.AttestationObject)
	if err != nil {
		return nil, err
	}

	err = checkClientData(clientDataRaw, ceremonyCreate, challenge, origin)
	if err != nil {
		return nil, err
	}

	authData, err := parseAttestationObject(attestation)
	if err != nil {
		return nil, err
	}
	if len(authData) < authDataMinLen {
		return nil, fmt.Errorf("%w: authenticator data too short", ErrMalformedResponse)
	}
	if authData[32]&flagUserPresent == 0 {
		return nil, fmt.Errorf("%w: user-present flag not set", ErrVerificationFailed)
	}
	if authData[32]&flagAttestedCredential == 0 {
		return nil, fmt.Errorf("%w: no attested credential data", ErrMalformedResponse)
	}

	credentialID, coseKey, err := parseAttestedCredential(authData[authDataMinLen:])
	if err != nil {
		return nil, err
	}

	// The key must at least parse; a key we cannot verify against later is
	// rejected now rather than at first assertion.
	_, err = parseCOSEKey(coseKey)
	if err != nil {
		return nil, err
	}

	id := base64.RawURLEncoding.EncodeToString(credentialID)
	if response.CredentialID != "" && response.CredentialID != id {
		return nil, fmt.Errorf("%w: credential id mismatch", ErrVerificationFailed)
	}

	return &Credential{
		ID:        id,
		PublicKey: coseKey,
		Counter:   binary.BigEndian.Uint32(authData[33:37]),
	}, nil
}

// parseAttestedCredential splits aaguid(16) || credIdLen(2) || credId ||
// COSE key out of the attested credential data section.
func parseAttestedCredential(data []byte) (credentialID, coseKey []byte, err error) {
	if len(data) < 18 {
		return nil, nil, fmt.Errorf("%w: attested credential data too short", ErrMalformedResponse)
	}
	idLen := int(binary.BigEndian.Uint16(data[16:18]))
	if len(data) < 18+idLen {
		return nil, nil, fmt.Errorf("%w: credential id truncated", ErrMalformedResponse)
	}
	credentialID = data[18 : 18+idLen]

	rest := data[18+idLen:]
	coseKey, err = firstCBORItem(rest)
	if err != nil {
		return nil, nil, err
	}
	return credentialID, coseKey, nil
}
