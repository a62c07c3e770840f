// internal/domain/entitlement/lottery.go
package entitlement

import (
	"math/rand"
	"sync"

	tierdom "presale/internal/domain/tier"
)

// Upgrade is one rarity-lottery outcome.
type Upgrade int

const (
	UpgradeNone Upgrade = iota
	UpgradeRare
	UpgradeUltra
)

// Lottery draw probabilities. Ultra is checked before rare so a single
// unit can never win both.
const (
	UltraProbability = 0.01
	RareProbability  = 0.01
)

// Lottery wraps the random source for the per-unit rarity and design
// draws. Seeded deterministically in tests; cryptographic quality is not
// required, the draws decide cosmetics and discount tiers, not custody.
// One instance is shared across requests, so draws take the mutex:
// *rand.Rand itself is not safe for concurrent use.
type Lottery struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLottery(seed int64) *Lottery {
	return &Lottery{rng: rand.New(rand.NewSource(seed))}
}

// NewLotteryFromRand wraps an existing source (tests).
func NewLotteryFromRand(rng *rand.Rand) *Lottery {
	return &Lottery{rng: rng}
}

// DrawUpgrade runs one independent per-unit draw: 1% ultra, else 1% rare,
// else none. The order is a business rule, not an implementation detail.
func (l *Lottery) DrawUpgrade() Upgrade {
	if l == nil || l.rng == nil {
		return UpgradeNone
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rng.Float64() < UltraProbability {
		return UpgradeUltra
	}
	if l.rng.Float64() < RareProbability {
		return UpgradeRare
	}
	return UpgradeNone
}

// DrawDesign picks a design id by declared weight. With no usable weights
// it falls back to the first design.
func (l *Lottery) DrawDesign(designs []tierdom.Design) int {
	if len(designs) == 0 {
		return 0
	}
	total := 0
	for _, d := range designs {
		if d.Weight > 0 {
			total += d.Weight
		}
	}
	if total <= 0 || l == nil || l.rng == nil {
		return designs[0].ID
	}
	l.mu.Lock()
	n := l.rng.Intn(total)
	l.mu.Unlock()
	for _, d := range designs {
		if d.Weight <= 0 {
			continue
		}
		if n < d.Weight {
			return d.ID
		}
		n -= d.Weight
	}
	return designs[0].ID
}
