// Package token creates and verifies the signed, purpose-tagged tokens
// that back sessions, password resets, and magic links.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"courseshare/internal/publicid"
)

// Purpose restricts which operation may consume a token. A reset token
// must never authenticate a session and vice versa; every consumer
// checks the decoded purpose before trusting the payload.
type Purpose string

const (
	PurposeSession   Purpose = "session"
	PurposeReset     Purpose = "reset"
	PurposeMagicLink Purpose = "magic_link"
)

var (
	// ErrInvalid covers malformed input, bad signatures, and expiry.
	ErrInvalid = errors.New("invalid token")
	// ErrSubject marks a token that verified but whose subject is not a
	// numeric user id. Callers treat it as a corrupted session and
	// self-heal rather than passing the value downstream.
	ErrSubject = errors.New("token subject is not a numeric user id")
)

type Claims struct {
	UserID    publicid.ID
	Purpose   Purpose
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret       []byte
	sessionTTL   time.Duration
	resetTTL     time.Duration
	magicLinkTTL time.Duration
}

func NewCodec(secret string, sessionTTL, resetTTL, magicLinkTTL time.Duration) *Codec {
	return &Codec{
		secret:       []byte(secret),
		sessionTTL:   sessionTTL,
		resetTTL:     resetTTL,
		magicLinkTTL: magicLinkTTL,
	}
}

func (c *Codec) ttl(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeSession:
		return c.sessionTTL, nil
	case PurposeReset:
		return c.resetTTL, nil
	case PurposeMagicLink:
		return c.magicLinkTTL, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

// Generate signs a time-bounded token for the given user and purpose.
// It does not verify the user exists; that is the caller's concern.
func (c *Codec) Generate(userID publicid.ID, purpose Purpose) (string, error) {
	ttl, err := c.ttl(purpose)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwtClaims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Every failure mode for attacker-supplied input folds into ErrInvalid,
// except a verified token with a non-numeric subject, which is reported
// as ErrSubject so the session layer can self-heal. Verify itself does
// not check purpose; consumers must.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrSubject
	}

	out := &Claims{
		UserID:  publicid.ID(userID),
		Purpose: Purpose(claims.Purpose),
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
