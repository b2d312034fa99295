package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	keys, err := NewKeys(time.Hour)
	require.NoError(t, err)
	id := uuid.New()

	token, err := keys.CreateJWT(id)
	require.NoError(t, err)

	got, err := keys.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWTRejectsForeignKey(t *testing.T) {
	a, err := NewKeys(0)
	require.NoError(t, err)
	b, err := NewKeys(0)
	require.NoError(t, err)

	token, err := a.CreateJWT(uuid.New())
	require.NoError(t, err)

	_, err = b.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsExpired(t *testing.T) {
	keys, err := NewKeys(0)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString(keys.private)
	require.NoError(t, err)

	_, err = keys.AuthenticateJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsNonUUIDSubject(t *testing.T) {
	keys, err := NewKeys(0)
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "alice"}).SignedString(keys.private)
	require.NoError(t, err)

	_, err = keys.AuthenticateJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoadKeys(t *testing.T) {
	public, private, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "id_ed25519")
	pubPath := filepath.Join(dir, "id_ed25519.pub")
	require.NoError(t, os.WriteFile(privPath, private, 0o600))
	require.NoError(t, os.WriteFile(pubPath, public, 0o644))

	keys, err := LoadKeys(privPath, pubPath, time.Hour)
	require.NoError(t, err)
	id := uuid.New()
	token, err := keys.CreateJWT(id)
	require.NoError(t, err)
	got, err := keys.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = LoadKeys(filepath.Join(dir, "missing"), pubPath, 0)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("correct horse", "not-a-hash"))

	_, err = Verify("x", "$argon2id$v=1$m=1,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
	_, err = Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestVerifyUsesEncodedParameters(t *testing.T) {
	cheap := Hasher{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hash, err := cheap.Hash("hunter22")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=8192,t=1,p=1")

	ok, err := Verify("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, CheckPassword("hunter22", hash))
}
