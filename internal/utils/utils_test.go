package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/model"
)

var opts = TokenOptions{Secret: "test-secret", Issuer: "table-reservation", Audience: "clients", TTL: time.Hour}

func alice() *model.User {
	return &model.User{ID: 12, Username: "alice", Email: "alice@x.com", FullName: "Alice A", PhoneNumber: "0812345678", Role: model.RoleCustomer}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken(opts, alice())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	c, err := ParseAccessToken(opts, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), c.UserID)
	assert.Equal(t, "12", c.Subject)
	assert.Equal(t, "alice", c.Username)
	assert.Equal(t, "Alice A", c.FullName)
	assert.Equal(t, model.RoleCustomer, c.Role)
	assert.NotEmpty(t, c.ID)
}

func TestAccessToken_UniqueIDs(t *testing.T) {
	a, err := NewAccessToken(opts, alice())
	require.NoError(t, err)
	b, err := NewAccessToken(opts, alice())
	require.NoError(t, err)

	ca, _ := ParseAccessToken(opts, a.Token)
	cb, _ := ParseAccessToken(opts, b.Token)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	good, err := NewAccessToken(opts, alice())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		o := opts
		o.Secret = "other"
		_, err := ParseAccessToken(o, good.Token)
		assert.Error(t, err)
	})
	t.Run("wrong audience", func(t *testing.T) {
		o := opts
		o.Audience = "someone-else"
		_, err := ParseAccessToken(o, good.Token)
		assert.Error(t, err)
	})
	t.Run("expired", func(t *testing.T) {
		o := opts
		o.TTL = -time.Minute
		old, err := NewAccessToken(o, alice())
		require.NoError(t, err)
		_, err = ParseAccessToken(opts, old.Token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})
	t.Run("none algorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseAccessToken(opts, raw)
		assert.Error(t, err)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ParseAccessToken(opts, "not.a.token")
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, VerifyPassword(hash, "secret1"))
	assert.False(t, VerifyPassword(hash, "secret2"))
	assert.False(t, BurnVerify("secret1"))

	again, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}
