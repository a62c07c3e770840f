// internal/domain/entitlement/lottery_test.go
package entitlement

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tierdom "presale/internal/domain/tier"
)

func TestDrawUpgradeFrequency(t *testing.T) {
	lot := NewLottery(42)

	const n = 200_000
	var ultra, rare int
	for i := 0; i < n; i++ {
		switch lot.DrawUpgrade() {
		case UpgradeUltra:
			ultra++
		case UpgradeRare:
			rare++
		}
	}

	// 1% each; a binomial at n=200k has sd ~45, so ±500 is a very wide
	// deterministic-seed corridor.
	assert.InDelta(t, n/100, ultra, 500, "ultra draws")
	assert.InDelta(t, n/100, rare, 500, "rare draws")
}

func TestDrawUpgradeNilSafe(t *testing.T) {
	var lot *Lottery
	assert.Equal(t, UpgradeNone, lot.DrawUpgrade())
	assert.Equal(t, 0, lot.DrawDesign(nil))
}

func TestDrawDesignRespectsWeights(t *testing.T) {
	lot := NewLottery(7)
	designs := tierdom.TreeSteel.Designs() // 1:60, 2:40
	require.Len(t, designs, 2)

	counts := map[int]int{}
	const n = 10_000
	for i := 0; i < n; i++ {
		id := lot.DrawDesign(designs)
		counts[id]++
	}

	assert.Equal(t, n, counts[1]+counts[2], "only declared ids drawn")
	assert.InDelta(t, 6000, counts[1], 600)
	assert.InDelta(t, 4000, counts[2], 600)
}

func TestDrawDesignOnlyValidIDs(t *testing.T) {
	lot := NewLottery(99)
	designs := tierdom.Silver.Designs()

	for i := 0; i < 5_000; i++ {
		id := lot.DrawDesign(designs)
		assert.True(t, tierdom.Silver.ValidDesignID(id), "drew %d", id)
	}
}

// One lottery instance serves every request; draws from unrelated buyers
// must be safe without any coordination between their records.
func TestLotteryConcurrentPurchases(t *testing.T) {
	lot := NewLottery(1)

	const buyers = 8
	const units = 200

	records := make([]PurchaseRecord, buyers)
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		rec, err := NewPurchaseRecord("buyer", tierdom.Silver, t0)
		require.NoError(t, err)
		records[i] = rec

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = records[i].ApplyPurchase(Purchase{
				Quantity:        units,
				PriceEurPerUnit: 250,
				Now:             t0,
			}, lot)
		}(i)
	}
	wg.Wait()

	for i := 0; i < buyers; i++ {
		require.NoError(t, errs[i])
		rec := records[i]
		assert.Equal(t, uint32(units), rec.QuantityOwned)
		assert.LessOrEqual(t, rec.Upgrades.Ultra+rec.Upgrades.Rare, uint32(units))
		var drawn uint32
		for id, n := range rec.DesignCounts {
			assert.True(t, tierdom.Silver.ValidDesignID(id), "design %d", id)
			drawn += n
		}
		assert.Equal(t, uint32(units), drawn)
	}
}

func TestDrawDesignZeroWeightFallback(t *testing.T) {
	lot := NewLottery(1)
	designs := []tierdom.Design{{ID: 3, Weight: 0}, {ID: 4, Weight: 0}}
	assert.Equal(t, 3, lot.DrawDesign(designs))
}
