package shortcode

import (
	"crypto/rand"
	"errors"
)

// Alphabet excludes visually ambiguous characters (0, 1, i, l, o and the
// uppercase I, L, O).
const Alphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// CodeLength is the fixed length of generated short codes.
const CodeLength = 7

// MaxAttempts bounds the uniqueness retry loop in the create-link flow. The
// codespace (54^7) makes collisions rare but not impossible, and unbounded
// retry risks livelock under pathological load.
const MaxAttempts = 5

// maxUnbiasedByte is the largest multiple of len(Alphabet) below 256. Bytes
// at or above it are rejected so every alphabet character is drawn with
// equal probability.
const maxUnbiasedByte = byte(256 - 256%len(Alphabet))

// ErrGenerationExhausted signals that every generation attempt collided with
// an existing code.
var ErrGenerationExhausted = errors.New("short code generation exhausted retry budget")

// Generator produces random short codes. It is stateless and makes no
// uniqueness guarantee; callers must check the system of record and retry.
type Generator struct{}

// NewGenerator returns a Generator drawing from the package alphabet.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a fresh random code of CodeLength characters.
func (g *Generator) Generate() string {
	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms.
			panic(err)
		}
		for _, b := range buf {
			ch, ok := mapByte(b)
			if !ok {
				continue
			}
			code = append(code, ch)
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code)
}

// mapByte converts one random byte into an alphabet character, reporting
// false for bytes that must be rejected to keep the draw uniform.
func mapByte(b byte) (byte, bool) {
	if b >= maxUnbiasedByte {
		return 0, false
	}
	return Alphabet[int(b)%len(Alphabet)], true
}
