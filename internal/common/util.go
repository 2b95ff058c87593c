package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomDigits returns n random decimal digits. The first digit is never
// zero so the value keeps its width when treated as a number.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	out := make([]byte, n)
	for i := range out {
		lo, span := int64(0), int64(10)
		if i == 0 {
			lo, span = 1, 9
		}
		d, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + lo + d.Int64())
	}
	return string(out), nil
}
