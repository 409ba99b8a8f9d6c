// Package passwords hashes and verifies account passwords.
//
// New hashes use the self-describing form
//
//	pbkdf2:<digest>:<iterations>$<salt>$<hex key>
//
// which is what werkzeug produces, so accounts created by earlier
// deployments keep working. bcrypt hashes ($2a$, $2b$, $2y$) are accepted
// for verification only.
package passwords

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/inkwell-blog/inkwell/internal/common"
)

const (
	DefaultIterations = 600000
	SaltLength        = 16
)

var ErrUnsupportedHash = errors.New("unsupported password hash")

// Hasher produces new hashes. The zero value uses DefaultIterations.
type Hasher struct {
	Iterations int
}

func (h Hasher) iterations() int {
	if h.Iterations <= 0 {
		return DefaultIterations
	}
	return h.Iterations
}

// Hash returns a pbkdf2:sha256 hash of password with a fresh random salt.
func (h Hasher) Hash(password string) (string, error) {
	salt, err := common.MakeRandAlnumString(SaltLength)
	if err != nil {
		return "", err
	}

	iter := h.iterations()
	key := derive([]byte(password), salt, iter, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", iter, salt, key), nil
}

// Verify reports whether password matches encoded. A malformed or unknown
// hash format is reported as an error, a mismatch is not.
func (h Hasher) Verify(encoded, password string) (bool, error) {
	if strings.HasPrefix(encoded, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
		}
		return true, nil
	}

	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}
	method, salt, want := parts[0], parts[1], parts[2]

	args := strings.Split(method, ":")
	if args[0] != "pbkdf2" || len(args) < 2 {
		return false, ErrUnsupportedHash
	}

	var newHash func() hash.Hash
	switch args[1] {
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return false, ErrUnsupportedHash
	}

	iter := DefaultIterations
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return false, ErrUnsupportedHash
		}
		iter = n
	}

	got := derive([]byte(password), salt, iter, newHash)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1, nil
}

func derive(password []byte, salt string, iter int, h func() hash.Hash) string {
	defer common.WipeByteArray(password)
	return hex.EncodeToString(pbkdf2.Key(password, []byte(salt), iter, h().Size(), h))
}
