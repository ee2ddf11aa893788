package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ardenoak/storefront/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// CustomerClaims represents the typed JWT the storefront accepts from the
// auth provider. CustomerID binds the session to the commerce backend cart.
type CustomerClaims struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// MintCustomerToken issues a signed JWT for the customer using the configured TTL.
func MintCustomerToken(cfg config.JWTConfig, now time.Time, customerID, email string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", fmt.Errorf("customer id is required")
	}

	claims := CustomerClaims{
		CustomerID: customerID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseCustomerToken validates the JWT string and returns typed claims.
func ParseCustomerToken(cfg config.JWTConfig, tokenString string) (*CustomerClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &CustomerClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(claims.CustomerID) == "" {
		return nil, fmt.Errorf("token missing customer id")
	}
	return claims, nil
}
