package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Intn returns a uniform int in [0, n) read from crypto/rand.
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// Secure draws from crypto/rand so prize outcomes cannot be predicted from
// earlier draws.
type Secure struct{}

// Intn panics only when the bound is not positive or the system entropy
// source is broken.
func (Secure) Intn(n int) int {
	v, err := Intn(n)
	if err != nil {
		panic(err)
	}
	return v
}
