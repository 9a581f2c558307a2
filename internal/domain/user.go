package domain

import "time"

// UserId is the stable identity a user logs in with. The original deployment
// keyed accounts by email address, so ids are normalized (lowercased) emails.
type UserId = string

type User struct {
	Id    UserId
	Admin bool
}

// PasswordFactor is the stored password credential for a user. Hash and Salt
// are raw bytes (base64 in the durable layout). Version and Iterations are
// recorded per factor so records hashed under older parameter sets keep
// verifying after the canonical parameters change.
type PasswordFactor struct {
	Hash       []byte
	Salt       []byte
	Version    int
	Iterations int
}

// TokenRecord is one live bearer token belonging to a user.
type TokenRecord struct {
	Token   string
	Ip      string
	Expires time.Time
}

// UserAuthRecord is the durable per-user auth state: at most one password
// factor plus the set of active session tokens.
type UserAuthRecord struct {
	Id       UserId
	Password *PasswordFactor
	Tokens   map[string]TokenRecord
}
