package domain

import "time"

// SigningKey is a token signing key persisted when keys must survive
// restarts. The private key PEM is sealed with the master key.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string // EdDSA or ES256
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
}
