// Package backoff retries operations with exponential, jittered delays.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy describes the delay between attempts. The wait before retry n is
// Initial * Factor^(n-1), plus up to Jitter of that again, capped at Max.
type Policy struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
	Factor  float64       `yaml:"factor"`
	Jitter  float64       `yaml:"jitter"`
}

// GenerationPolicy suits model API calls, where rate limits clear in
// seconds rather than milliseconds.
func GenerationPolicy() Policy {
	return Policy{
		Initial: 500 * time.Millisecond,
		Max:     8 * time.Second,
		Factor:  2,
		Jitter:  0.2,
	}
}

// IsZero reports whether p is unset.
func (p Policy) IsZero() bool {
	return p == Policy{}
}

// Delay returns the wait after failed attempt n (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return p.delay(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// delay computes Delay for a fixed random value r in [0, 1).
func (p Policy) delay(attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.Initial) * math.Pow(factor, float64(attempt-1))
	d += d * p.Jitter * r
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	return time.Duration(math.Round(d))
}
