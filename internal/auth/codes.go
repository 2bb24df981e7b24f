package auth

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
	"time"
)

const (
	digits    = "0123456789"
	hexDigits = "0123456789abcdef"
)

// CodePolicy describes one family of single-use codes.
type CodePolicy struct {
	Name     string
	Length   int
	Alphabet string
	// FirstAlphabet, when set, restricts the leading symbol.
	FirstAlphabet string
	TTL           time.Duration
}

var (
	// VerificationCodePolicy yields numbers uniform over [100000, 999999].
	VerificationCodePolicy = CodePolicy{
		Name:          "verification",
		Length:        6,
		Alphabet:      digits,
		FirstAlphabet: digits[1:],
		TTL:           24 * time.Hour,
	}

	// ResetTokenPolicy yields 160 random bits as 40 lowercase hex characters.
	ResetTokenPolicy = CodePolicy{
		Name:     "reset",
		Length:   40,
		Alphabet: hexDigits,
		TTL:      time.Hour,
	}
)

// WithTTL returns a copy of the policy with ttl applied when positive.
func (p CodePolicy) WithTTL(ttl time.Duration) CodePolicy {
	if ttl > 0 {
		p.TTL = ttl
	}
	return p
}

// Matches reports whether value could have been produced by the policy.
func (p CodePolicy) Matches(value string) bool {
	if len(value) != p.Length {
		return false
	}
	for i, ch := range value {
		alphabet := p.Alphabet
		if i == 0 && p.FirstAlphabet != "" {
			alphabet = p.FirstAlphabet
		}
		if !strings.ContainsRune(alphabet, ch) {
			return false
		}
	}
	return true
}

type Code struct {
	Value     string
	ExpiresAt time.Time
}

// CodeGenerator draws codes from a cryptographically secure source.
type CodeGenerator struct {
	random io.Reader
	now    func() time.Time
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		random: rand.Reader,
		now:    time.Now,
	}
}

func (g *CodeGenerator) Generate(policy CodePolicy) (Code, error) {
	if policy.Length <= 0 || policy.Alphabet == "" {
		return Code{}, errors.New("invalid code policy")
	}

	var b strings.Builder
	b.Grow(policy.Length)
	for i := 0; i < policy.Length; i++ {
		alphabet := policy.Alphabet
		if i == 0 && policy.FirstAlphabet != "" {
			alphabet = policy.FirstAlphabet
		}
		n, err := rand.Int(g.random, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return Code{}, err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return Code{
		Value:     b.String(),
		ExpiresAt: g.now().Add(policy.TTL),
	}, nil
}
