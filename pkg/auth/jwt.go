package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jordanlanch/leadrouter/pkg/domain"
)

// Claims carries the agent identity inside a signed token.
type Claims struct {
	AgentID string `json:"agent_id"`
	Handle  string `json:"handle"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and validates agent tokens.
type JWTService struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expirationHours int) *JWTService {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &JWTService{
		secret:     []byte(secret),
		expiration: time.Duration(expirationHours) * time.Hour,
	}
}

// GenerateToken signs a token for an agent.
func (s *JWTService) GenerateToken(agentID, handle, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		AgentID: agentID,
		Handle:  handle,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.NewUnauthorizedError()
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, domain.NewUnauthorizedError()
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.NewUnauthorizedError()
	}
	return claims, nil
}
