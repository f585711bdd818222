package services

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	BallotCodeLength   = 8
	ballotCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// GenerateBallotCode draws a uniformly random alphanumeric code from source.
// A nil source uses crypto/rand.
func GenerateBallotCode(source io.Reader) (string, error) {
	if source == nil {
		source = rand.Reader
	}
	size := big.NewInt(int64(len(ballotCodeAlphabet)))
	code := make([]byte, BallotCodeLength)
	for i := range code {
		n, err := rand.Int(source, size)
		if err != nil {
			return "", err
		}
		code[i] = ballotCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
