// Package otp generates the one-time codes mailed for email verification and
// password reset.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	// Length is the number of characters in a code.
	Length = 6

	letterCount = 2
	letters     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
)

// Generator produces codes of exactly two uppercase letters and four digits
// in random positions.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorWithSource returns a Generator reading from src. Tests only.
func NewGeneratorWithSource(src io.Reader) *Generator {
	return &Generator{rand: src}
}

// Generate returns a fresh code.
func (g *Generator) Generate() (string, error) {
	code := make([]byte, Length)
	for i := 0; i < Length; i++ {
		set := digits
		if i < letterCount {
			set = letters
		}
		n, err := g.intn(len(set))
		if err != nil {
			return "", err
		}
		code[i] = set[n]
	}

	// Fisher-Yates so letter positions are not fixed.
	for i := Length - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return "", err
		}
		code[i], code[j] = code[j], code[i]
	}
	return string(code), nil
}

func (g *Generator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("otp entropy: %w", err)
	}
	return int(v.Int64()), nil
}
