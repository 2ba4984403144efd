// Package password hashes operator passwords with Argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	keyLen  uint32 = 32
	saltLen        = 16

	// MinLength is the shortest password accepted for a new operator.
	MinLength = 12
)

var ErrTooShort = errors.New("password_too_short")

// Params are the Argon2id cost parameters encoded into every hash.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultParams is used for stored operator hashes.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4}

// Hash returns an encoded Argon2id hash using DefaultParams.
func Hash(password string) (string, error) {
	return HashWith(password, DefaultParams)
}

// HashWith returns an encoded Argon2id hash using p. Tests use cheap params.
func HashWith(password string, p Params) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		p = DefaultParams
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches encoded. Malformed hashes never match.
func Verify(password, encoded string) bool {
	p, salt, sum, ok := decode(encoded)
	if !ok {
		return false
	}
	check := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(sum, check) == 1
}

// NeedsRehash reports whether encoded was produced with weaker params than want.
func NeedsRehash(encoded string, want Params) bool {
	p, _, _, ok := decode(encoded)
	if !ok {
		return true
	}
	return p.Time < want.Time || p.Memory < want.Memory || p.Threads < want.Threads
}

func decode(encoded string) (Params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, false
	}

	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return Params{}, nil, nil, false
	}
	m, okM := parseField(fields[0], "m=", 32)
	t, okT := parseField(fields[1], "t=", 32)
	th, okP := parseField(fields[2], "p=", 8)
	if !okM || !okT || !okP || m == 0 || t == 0 || th == 0 {
		return Params{}, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, false
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return Params{}, nil, nil, false
	}
	return Params{Time: uint32(t), Memory: uint32(m), Threads: uint8(th)}, salt, sum, true
}

func parseField(field, prefix string, bits int) (uint64, bool) {
	raw, ok := strings.CutPrefix(field, prefix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, false
	}
	return v, true
}
