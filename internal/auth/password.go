// internal/auth/password.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidHash is returned when a stored hash is not in PHC argon2id form.
	ErrInvalidHash = errors.New("auth: malformed password hash")
	// ErrIncompatibleVersion is returned for hashes produced by another argon2 version.
	ErrIncompatibleVersion = errors.New("auth: incompatible argon2 version")
)

// Hasher derives argon2id password hashes. Parameters are embedded in every
// encoded hash, so changing them does not invalidate stored accounts.
type Hasher struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHasher is used by HashPassword and CheckPassword.
var DefaultHasher = Hasher{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: uint8(max(1, min(runtime.NumCPU()/2, 255))),
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword hashes password with DefaultHasher.
func HashPassword(password string) (string, error) {
	return DefaultHasher.Hash(password)
}

// CheckPassword reports whether password matches encoded. A malformed hash
// counts as a mismatch.
func CheckPassword(password, encoded string) bool {
	ok, err := Verify(password, encoded)
	return err == nil && ok
}

// Hash returns the PHC string $argon2id$v=..$m=..,t=..,p=..$salt$key.
func (h Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify recomputes the key for password using the parameters stored in
// encoded and compares in constant time.
func Verify(password, encoded string) (bool, error) {
	h, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)
	return subtle.ConstantTimeCompare(key, got) == 1, nil
}

func parseHash(encoded string) (Hasher, []byte, []byte, error) {
	var h Hasher
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return h, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return h, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return h, nil, nil, ErrIncompatibleVersion
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.Memory, &h.Iterations, &h.Parallelism); err != nil {
		return h, nil, nil, ErrInvalidHash
	}

	enc := base64.RawStdEncoding.Strict()
	salt, err := enc.DecodeString(parts[4])
	if err != nil {
		return h, nil, nil, ErrInvalidHash
	}
	key, err := enc.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return h, nil, nil, ErrInvalidHash
	}
	h.SaltLength = uint32(len(salt))
	h.KeyLength = uint32(len(key))
	return h, salt, key, nil
}
