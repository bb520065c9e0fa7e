package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// passwordAlphabet matches the identity provider's default password policy:
// letters, digits and four symbols.
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789@#$%"

const passwordLength = 12

// GeneratePassword returns a fixed-length password drawn uniformly from
// passwordAlphabet using a cryptographically secure source.
func GeneratePassword() (string, error) {
	buf := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random source: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
