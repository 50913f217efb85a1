// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenTTL is how long issued tokens stay valid. Zero issues tokens without an expiry.
	TokenTTL time.Duration
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a player session. Admin tokens carry Admin = true and no player identity is
// required for them.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// parseTokenTTL reads TOKEN_EXPIRE_TIME ("never", "0", or a Go duration).
func parseTokenTTL() error {
	raw := os.Getenv("TOKEN_EXPIRE_TIME")
	if raw == "" || raw == "never" || raw == "0" {
		TokenTTL = 0
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	TokenTTL = d
	return nil
}

// Init generates a fresh signing key. Tokens do not survive a restart.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return parseTokenTTL()
}

// InitFromPath loads a raw ed25519 key pair from disk.
func InitFromPath(privatePath, publicPath string) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 key files have the wrong size")
	}
	privateKey = ed25519.PrivateKey(priv)
	publicKey = ed25519.PublicKey(pub)
	return parseTokenTTL()
}

func sign(claims Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if TokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(TokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}

// CreateJWT issues a player token.
func CreateJWT(userID uuid.UUID, name string) (string, error) {
	return sign(Claims{
		Name:             name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	})
}

// CreateAdminJWT issues an operator token.
func CreateAdminJWT() (string, error) {
	return sign(Claims{
		Admin:            true,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin"},
	})
}

// AuthenticateJWT verifies the signature and expiry and returns the claims.
func AuthenticateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
