package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// LoginCodeAlphabet excludes I, L, O, 0 and 1 so codes can be read aloud and retyped
const LoginCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// LoginCodeLength is the number of symbols in a login code
const LoginCodeLength = 10

// GenerateLoginCode returns a new random login code in its normalized form (no separator)
func GenerateLoginCode() (string, error) {
	code := make([]byte, LoginCodeLength)
	max := big.NewInt(int64(len(LoginCodeAlphabet)))

	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate login code: %w", err)
		}
		code[i] = LoginCodeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// NormalizeLoginCode upper-cases user input and strips spaces and dashes
func NormalizeLoginCode(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToUpper(input) {
		switch r {
		case ' ', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatLoginCode renders a normalized code as XXXXX-XXXXX for display
func FormatLoginCode(code string) string {
	code = NormalizeLoginCode(code)
	if len(code) != LoginCodeLength {
		return code
	}
	half := LoginCodeLength / 2
	return code[:half] + "-" + code[half:]
}

// IsWellFormedLoginCode reports whether a normalized code could have been issued
func IsWellFormedLoginCode(code string) bool {
	if len(code) != LoginCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(LoginCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// CodeHasher computes keyed digests of login codes so raw codes are never stored
type CodeHasher struct {
	key []byte
}

// NewCodeHasher creates a hasher keyed with secret. Secrets longer than
// blake2b's 64-byte key limit are compressed first.
func NewCodeHasher(secret string) *CodeHasher {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &CodeHasher{key: key}
}

// Hash returns the hex-encoded BLAKE2b-256 digest of the normalized code
func (h *CodeHasher) Hash(code string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with a key over 64 bytes, which NewCodeHasher prevents
		panic(err)
	}
	mac.Write([]byte(NormalizeLoginCode(code)))
	return hex.EncodeToString(mac.Sum(nil))
}
