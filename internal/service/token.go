package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
)

// SessionClaims binds a verified access session to one share, one file and
// the mode that authorized it. Device sessions additionally carry the
// asserting credential.
type SessionClaims struct {
	ShareID      string
	FileID       string
	Mode         model.ShareMode
	CredentialID string
}

// TokenService mints and verifies the short-lived session tokens handed out
// by the PIN and device verifiers, and generates raw capability tokens.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateToken returns a high-entropy random value usable as a capability
// (download tokens, upload validations). 32 bytes of randomness; the value
// itself is the only secret.
func (s *TokenService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// MintSession signs the claims with the given validity window.
func (s *TokenService) MintSession(claims *SessionClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	mapClaims := jwt.MapClaims{
		"share_id": claims.ShareID,
		"file_id":  claims.FileID,
		"mode":     string(claims.Mode),
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}
	if claims.CredentialID != "" {
		mapClaims["cred_id"] = claims.CredentialID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifySession validates the signature and expiry and returns the typed
// claims. All failures collapse to Unauthorized.
func (s *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("session token rejected: %w", apperr.ErrUnauthorized)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("session token invalid: %w", apperr.ErrUnauthorized)
	}

	shareID, _ := mapClaims["share_id"].(string)
	fileID, _ := mapClaims["file_id"].(string)
	mode, _ := mapClaims["mode"].(string)
	credID, _ := mapClaims["cred_id"].(string)

	claims := &SessionClaims{
		ShareID:      shareID,
		FileID:       fileID,
		Mode:         model.ShareMode(mode),
		CredentialID: credID,
	}
	if claims.ShareID == "" || claims.FileID == "" || !claims.Mode.Valid() {
		return nil, fmt.Errorf("session token missing claims: %w", apperr.ErrUnauthorized)
	}

	return claims, nil
}
