// Package rng supplies the randomness used by every game resolution. The
// production source reads crypto/rand so outcomes cannot be predicted from
// observed history; tests use Fixed to replay a known sequence of draws.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Provider produces uniformly distributed draws. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Intn returns a uniform value in [0, n). Panics if n <= 0.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCrypto returns the production provider backed by crypto/rand.
func NewCrypto() Provider {
	return cryptoSource{}
}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("rng: crypto source unavailable: %v", err))
	}
	// 53 high bits, the full precision of a float64 mantissa.
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with n <= 0")
	}
	max := ^uint64(0) - ^uint64(0)%uint64(n)
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("rng: crypto source unavailable: %v", err))
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return int(v % uint64(n))
		}
	}
}

// Shuffle permutes n elements using the provider (Fisher-Yates).
func Shuffle(p Provider, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, p.Intn(i+1))
	}
}

// Proof derives the short fairness commitment disclosed with a resolved
// outcome: sha256 over account id, timestamp and outcome, truncated to 8 hex
// characters. It is a transparency aid, not a pre-commit scheme.
func Proof(accountID string, unixMillis int64, outcome string) string {
	sum := sha256.Sum256([]byte(accountID + "-" + strconv.FormatInt(unixMillis, 10) + "-" + outcome))
	return hex.EncodeToString(sum[:])[:8]
}

// Fixed is a deterministic provider that replays the given draws in order.
// Intn scales the next draw to the requested range. It wraps around when the
// sequence is exhausted, failing loud on an empty sequence.
type Fixed struct {
	draws []float64
	next  int
}

func NewFixed(draws ...float64) *Fixed {
	if len(draws) == 0 {
		panic("rng: Fixed needs at least one draw")
	}
	return &Fixed{draws: draws}
}

func (f *Fixed) Float64() float64 {
	v := f.draws[f.next%len(f.draws)]
	f.next++
	return v
}

func (f *Fixed) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with n <= 0")
	}
	return int(f.Float64() * float64(n))
}
