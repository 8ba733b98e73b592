package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
)

// Claims is the token payload issued by the auth frontend: the user id
// in sub plus the marketplace role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier parses HS256 bearer tokens into an Actor.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify validates signature and expiry and returns the caller identity.
func (v *TokenVerifier) Verify(raw string) (actorcontext.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return actorcontext.Actor{}, ErrMissingToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return actorcontext.Actor{}, ErrTokenExpired
		}
		return actorcontext.Actor{}, ErrInvalidToken
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(claims.Subject))
	if err != nil || userID == 0 {
		return actorcontext.Actor{}, ErrInvalidToken
	}
	role := actorcontext.Role(strings.ToUpper(strings.TrimSpace(claims.Role)))
	if !role.Valid() {
		return actorcontext.Actor{}, ErrInvalidToken
	}

	return actorcontext.Actor{UserID: userID, Role: role}, nil
}

// Issue signs a token for the given actor.
func (v *TokenVerifier) Issue(actor actorcontext.Actor, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
