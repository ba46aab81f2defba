package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
)

const (
	pinMin = 100000
	pinMax = 999999
)

// GeneratePin returns a uniformly random 6-digit code in [100000, 999999].
func GeneratePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+pinMin, 10), nil
}

func PinsEqual(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
