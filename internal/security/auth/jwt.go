package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity domains. Provider and school tokens are minted by separate
// managers with separate secrets and never validate across domains.
const (
	DomainProvider = "provider"
	DomainSchool   = "school"
)

type Claims struct {
	Domain   string `json:"domain"`
	TenantID string `json:"tenant_id,omitempty"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret string
	issuer string
	domain string
}

func NewTokenManager(secret, domain string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	return &TokenManager{secret: secret, issuer: "classtrack-" + domain, domain: domain}
}

// Domain returns the identity domain this manager mints tokens for.
func (tm *TokenManager) Domain() string {
	return tm.domain
}

// GenerateToken mints a signed token and returns it with its session id
// (jti), which the server-side session store keys revocation records on.
func (tm *TokenManager) GenerateToken(tenantID, userID, email, role string, expiresIn time.Duration) (token, sessionID string, err error) {
	if userID == "" {
		return "", "", fmt.Errorf("user_id required")
	}
	if tm.domain == DomainSchool && tenantID == "" {
		return "", "", fmt.Errorf("tenant_id required for school tokens")
	}
	sessionID = newSessionID()
	now := time.Now()
	claims := Claims{
		Domain:   tm.domain,
		TenantID: tenantID,
		UserID:   userID,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString([]byte(tm.secret))
	return token, sessionID, err
}

func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Domain != tm.domain {
		return nil, fmt.Errorf("token domain %q not valid here", claims.Domain)
	}
	return claims, nil
}

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("sid-%d", time.Now().UnixNano())
}
