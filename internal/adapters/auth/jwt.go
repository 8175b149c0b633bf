package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the user id in the subject and an optional display name.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// JWTVerifier accepts HS256 bearer tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

var _ core.Verifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (*domain.User, error) {
	claims, err := v.parse(credential)
	if err != nil {
		log.Debug().Err(err).Str("module", "auth").Msg("token rejected")
		return nil, errors.Join(core.ErrInvalidCredential, err)
	}
	u, err := domain.NewUser(claims.Subject, claims.Name)
	if err != nil {
		return nil, errors.Join(core.ErrInvalidCredential, err)
	}
	return u, nil
}

func (v *JWTVerifier) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs a token for uid. Used by tooling and tests.
func (v *JWTVerifier) Issue(uid domain.UserID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   string(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
