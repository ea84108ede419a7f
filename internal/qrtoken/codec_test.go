package qrtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass/internal/core"
)

const testKey = "test-signing-key"

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func testClaims() core.TokenClaims {
	now := fixedNow()
	return core.TokenClaims{
		OutpassID:  "op_1",
		StudentID:  "std_1",
		WindowFrom: now.Add(4 * time.Hour),
		WindowTo:   now.Add(8 * time.Hour),
		IssuedAt:   now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	raw, err := codec.Issue(testClaims())
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	decoded, err := codec.Decode(raw)
	require.NoError(t, err)

	want := testClaims()
	assert.Equal(t, want.OutpassID, decoded.OutpassID)
	assert.Equal(t, want.StudentID, decoded.StudentID)
	assert.True(t, decoded.WindowFrom.Equal(want.WindowFrom))
	assert.True(t, decoded.WindowTo.Equal(want.WindowTo))
	assert.True(t, decoded.IssuedAt.Equal(want.IssuedAt))
	assert.True(t, decoded.ExpiresAt.Equal(want.ExpiresAt))
}

func TestCodec_Decode_Expired(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	raw, err := codec.Issue(testClaims())
	require.NoError(t, err)

	// Parse a day and a minute later, past the 24h expiry
	late := NewCodec(testKey, "outpass", func() time.Time {
		return fixedNow().Add(24*time.Hour + time.Minute)
	})

	_, err = late.Decode(raw)
	assert.ErrorIs(t, err, core.ErrExpiredToken)
}

func TestCodec_Decode_Malformed(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	_, err := codec.Decode("not-a-token")
	assert.ErrorIs(t, err, core.ErrMalformedToken)

	_, err = codec.Decode("")
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	raw, err := codec.Issue(testClaims())
	require.NoError(t, err)

	other := NewCodec("another-key", "outpass", fixedNow)
	_, err = other.Decode(raw)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestCodec_Decode_RejectsForeignJWT(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	// A structurally valid JWT signed with our key but without the
	// outpass discriminator claim
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "op_1",
		IssuedAt:  jwt.NewNumericDate(fixedNow()),
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	})
	raw, err := foreign.SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestCodec_Decode_RejectsUnsignedToken(t *testing.T) {
	codec := NewCodec(testKey, "outpass", fixedNow)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "op_1",
		"sid": "std_1",
		"typ": "outpass_qr",
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}
