package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minCodeLength = 6
	maxCodeLength = 10
)

// codeAlphabet drops 0/O and 1/I so codes survive being read aloud or retyped.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func randomCodeGenerator(length int) CodeGenerator {
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	return func() (string, error) {
		buf := make([]byte, length)
		for i := range buf {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("could not generate referral code: %w", err)
			}
			buf[i] = codeAlphabet[n.Int64()]
		}
		return string(buf), nil
	}
}
