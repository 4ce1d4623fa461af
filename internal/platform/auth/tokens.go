package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs access and refresh tokens with a shared HMAC secret.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a TokenIssuer. accessTTL and refreshTTL must be
// positive.
func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Secret returns the signing secret for middleware wiring.
func (i *TokenIssuer) Secret() []byte { return i.secret }

// IssueAccessToken signs a short-lived access token for the principal.
func (i *TokenIssuer) IssueAccessToken(p *Principal) (string, error) {
	return i.sign(p, TokenTypeAccess, i.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the principal.
func (i *TokenIssuer) IssueRefreshToken(p *Principal) (string, error) {
	return i.sign(p, TokenTypeRefresh, i.refreshTTL)
}

func (i *TokenIssuer) sign(p *Principal, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", p.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    p.UserID,
		Username:  p.Username,
		Role:      p.Role,
		CompanyID: p.CompanyID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ParseRefreshToken verifies a refresh token and returns the principal it
// was issued for. Access tokens are rejected.
func (i *TokenIssuer) ParseRefreshToken(tokenStr string) (*Principal, error) {
	claims, err := ParseToken(tokenStr, i.secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("not a refresh token")
	}
	return &Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		CompanyID: claims.CompanyID,
	}, nil
}
