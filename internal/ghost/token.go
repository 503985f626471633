package ghost

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// adminTokenTTL is the maximum lifetime Ghost accepts for admin tokens.
const adminTokenTTL = 5 * time.Minute

// adminToken signs a short-lived Admin API token from the "<id>:<secret>" key.
func (c *Client) adminToken() (string, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(c.adminKey), ":")
	if !ok || id == "" || secret == "" {
		return "", ErrInvalidAdminKey
	}
	key, err := hex.DecodeString(secret)
	if err != nil {
		return "", ErrInvalidAdminKey
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Audience:  []string{"/admin/"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = id
	return t.SignedString(key)
}
