// Package auth is the identity collaborator: it turns an opaque bearer
// credential into a verified {uid, email} pair. The core protocol never
// handles raw login credentials.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
)

// Provider verifies an opaque bearer credential.
type Provider interface {
	VerifyBearer(token string) (*model.Identity, error)
}

// JWTProvider implements Provider with HS256-signed bearer tokens. It also
// mints tokens so deployments without an external identity service can run
// self-contained.
type JWTProvider struct {
	secret []byte
	expiry time.Duration
}

func NewJWTProvider(secret string, expiry time.Duration) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), expiry: expiry}
}

func (p *JWTProvider) Mint(identity *model.Identity) (string, error) {
	claims := jwt.MapClaims{
		"uid":   identity.UID,
		"email": identity.Email,
		"exp":   time.Now().Add(p.expiry).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(p.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (p *JWTProvider) VerifyBearer(tokenString string) (*model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("bearer token rejected: %w", apperr.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("bearer token invalid: %w", apperr.ErrUnauthorized)
	}

	uid, _ := claims["uid"].(string)
	email, _ := claims["email"].(string)
	if uid == "" {
		return nil, fmt.Errorf("bearer token missing uid: %w", apperr.ErrUnauthorized)
	}

	return &model.Identity{UID: uid, Email: email}, nil
}
