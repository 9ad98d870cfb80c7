package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// We don't want to handle tokens in plain text outside the config layer,
// so all comparisons run on the sha256 digest. Since both sides of the
// comparison are hashed we cannot use salts here.
// In general just hashing is not enough, but since the tokens are
// generated random strings this seems to be reasonable solution.
func HashAPIKey(arg string) string {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return hex.EncodeToString(hasher.Sum(nil))
}
