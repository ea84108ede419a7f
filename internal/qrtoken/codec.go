package qrtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"outpass/internal/core"
)

// tokenType is the discriminator claim marking a token as an outpass QR
// pass. Decode rejects anything else so unrelated JWTs cannot be scanned.
const tokenType = "outpass_qr"

// claims is the wire shape of the canonical QR payload
type claims struct {
	StudentID  string `json:"sid"`
	WindowFrom int64  `json:"wfrom"`
	WindowTo   int64  `json:"wto"`
	TokenType  string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and parses outpass QR tokens. It implements both
// core.TokenIssuer and core.TokenDecoder; the issuer side only encodes and
// the validator side only decodes.
type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewCodec creates a codec signing with the given HS256 key. The now
// function drives expiry validation during decode; pass clock.Now.
func NewCodec(key, issuer string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{key: []byte(key), issuer: issuer, now: now}
}

// Issue encodes the canonical payload into a signed token string.
// Pure function of the claims; no hidden state.
func (c *Codec) Issue(tc core.TokenClaims) (string, error) {
	payload := claims{
		StudentID:  tc.StudentID,
		WindowFrom: tc.WindowFrom.Unix(),
		WindowTo:   tc.WindowTo.Unix(),
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   tc.OutpassID,
			IssuedAt:  jwt.NewNumericDate(tc.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(tc.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Decode parses a scanned raw value back into the canonical payload.
// Expired signatures map to core.ErrExpiredToken; every other parse or
// shape failure maps to core.ErrMalformedToken.
func (c *Codec) Decode(raw string) (*core.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.key, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", core.ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}

	payload, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: unexpected claims shape", core.ErrMalformedToken)
	}
	if payload.TokenType != tokenType {
		return nil, fmt.Errorf("%w: not an outpass token", core.ErrMalformedToken)
	}
	if payload.Subject == "" || payload.StudentID == "" {
		return nil, fmt.Errorf("%w: missing outpass or student reference", core.ErrMalformedToken)
	}
	if payload.IssuedAt == nil || payload.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing issuance or expiry claim", core.ErrMalformedToken)
	}

	return &core.TokenClaims{
		OutpassID:  payload.Subject,
		StudentID:  payload.StudentID,
		WindowFrom: time.Unix(payload.WindowFrom, 0),
		WindowTo:   time.Unix(payload.WindowTo, 0),
		IssuedAt:   payload.IssuedAt.Time,
		ExpiresAt:  payload.ExpiresAt.Time,
	}, nil
}

// Ensure the codec satisfies both core contracts
var (
	_ core.TokenIssuer  = (*Codec)(nil)
	_ core.TokenDecoder = (*Codec)(nil)
)
