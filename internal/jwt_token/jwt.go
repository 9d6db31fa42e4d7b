package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
)

// Claims represents the JWT claims carried by staff access tokens. The HMO
// scope comes from the session, never from request input.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	HMOID  string `json:"hmo_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles access token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(
	userID id.UserID,
	role id.Role,
	hmoID id.HMOID,
	expiresIn time.Duration) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !hmoID.IsZero() {
		claims.HMOID = hmoID.String()
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Principal converts validated claims into the acting principal.
func (c *Claims) Principal() (id.Principal, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	p := id.Principal{UserID: userID, Role: id.Role(c.Role)}
	if c.HMOID != "" {
		hmoID, err := id.ParseHMOID(c.HMOID)
		if err != nil {
			return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		p.HMOID = hmoID
	}
	return p, nil
}
