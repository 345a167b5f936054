package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
)

func isEd25519(k any) bool {
	_, ok := k.(ed25519.PublicKey)
	return ok
}

func isECDSA(k any) bool {
	_, ok := k.(*ecdsa.PublicKey)
	return ok
}
