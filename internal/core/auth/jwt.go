package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"` // USER / ADMIN
	jwt.RegisteredClaims
}

// Principal is the identity carried by a verified token.
type Principal struct {
	UserID string
	Role   domain.Role
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration

	now func() time.Time
}

func NewJWTer(secret, issuer string, ttl time.Duration) *JWTer {
	return &JWTer{Secret: []byte(secret), Issuer: issuer, TTL: ttl}
}

func (j *JWTer) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now()
}

func (j *JWTer) Issue(uid string, role domain.Role) (string, error) {
	now := j.clock()
	claims := Claims{
		UID:  uid,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Verify checks signature, issuer and expiry. Every failure wraps ErrInvalidToken.
func (j *JWTer) Verify(tokenStr string) (Principal, error) {
	var c Claims
	t, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(60*time.Second),
		jwt.WithTimeFunc(j.clock),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || c.UID == "" {
		return Principal{}, ErrInvalidToken
	}
	role, ok := domain.ParseRole(c.Role)
	if !ok {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}
	return Principal{UserID: c.UID, Role: role}, nil
}
