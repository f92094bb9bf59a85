package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/domain/user"
)

const issuer = "warden"

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

var ErrTokenInvalid = errors.New("invalid token")

type Claims struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID string
	Email  string
	Role   user.Role
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

type CodecConfig struct {
	Secret string
	TTL    time.Duration
	// Leeway is the accepted clock skew. Zero means a token is invalid from
	// the exact second its exp is reached.
	Leeway time.Duration
	Now    func() time.Time
}

// Codec signs and verifies HS256 tokens of one kind. The kind is carried in
// the audience so access and refresh tokens never verify as each other.
type Codec struct {
	kind   TokenKind
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(kind TokenKind, cfg CodecConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%s token secret is empty", kind)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%s token ttl must be positive", kind)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Codec{
		kind:   kind,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(string(kind)),
	)
	return c, nil
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign returns the token and its expiry.
func (c *Codec) Sign(id Identity) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl)
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			Audience:  jwt.ClaimStrings{string(c.kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", c.kind, err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify never returns a cause beyond ErrTokenInvalid.
func (c *Codec) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
