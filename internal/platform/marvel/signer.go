package marvel

import (
	"crypto/md5"
	"encoding/hex"
)

// Signer produces the hash credential the gateway expects for a given
// request timestamp. It is an interface so the digest scheme can be swapped
// without touching fetch logic.
type Signer interface {
	Sign(ts string) string
}

// MD5Signer implements the gateway's documented server-side signing scheme:
// md5(ts + privateKey + publicKey).
type MD5Signer struct {
	PublicKey  string
	PrivateKey string
}

func (s MD5Signer) Sign(ts string) string {
	sum := md5.Sum([]byte(ts + s.PrivateKey + s.PublicKey))
	return hex.EncodeToString(sum[:])
}
