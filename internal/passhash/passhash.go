// Package passhash derives and verifies salted password digests.
//
// Digests are PBKDF2 with per-record parameters. The canonical parameter set
// is version 2 (PBKDF2-SHA256, 210k iterations); version 1 records
// (PBKDF2-SHA1, 10k iterations) predate the parameter bump and keep verifying
// with their recorded parameters until the password is next set.
package passhash

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

const (
	// CanonicalVersion is the parameter set used for all newly set passwords.
	CanonicalVersion = 2

	Iterations = 210_000
	SaltLen    = 16
	KeyLen     = 32
)

// hashFuncFor returns the PRF for a record version, or nil if the version
// is unknown.
func hashFuncFor(version int) func() hash.Hash {
	switch version {
	case 1:
		return sha1.New
	case CanonicalVersion:
		return sha256.New
	default:
		return nil
	}
}

// NewFactor derives a fresh password factor with a random salt and the
// canonical parameters.
func NewFactor(password string) domain.PasswordFactor {
	salt := utils.GenerateSalt(SaltLen)
	return domain.PasswordFactor{
		Hash:       pbkdf2.Key([]byte(password), salt, Iterations, KeyLen, sha256.New),
		Salt:       salt,
		Version:    CanonicalVersion,
		Iterations: Iterations,
	}
}

// Verify recomputes the digest with the factor's recorded parameters and
// compares in constant time. Any structural anomaly (missing salt or hash,
// bad iteration count, unknown version) is a mismatch, never an error.
func Verify(password string, factor domain.PasswordFactor) bool {
	if len(factor.Hash) == 0 || len(factor.Salt) == 0 || factor.Iterations <= 0 {
		return false
	}
	h := hashFuncFor(factor.Version)
	if h == nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), factor.Salt, factor.Iterations, len(factor.Hash), h)
	return subtle.ConstantTimeCompare(computed, factor.Hash) == 1
}
