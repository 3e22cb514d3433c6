package atm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBills(t *testing.T) {
	t.Run("prefers fifties", func(t *testing.T) {
		bills, err := SplitBills(130)
		assert.NoError(t, err)
		assert.Equal(t, Bills{Fifties: 1, Twenties: 4}, bills)

		bills, err = SplitBills(500)
		assert.NoError(t, err)
		assert.Equal(t, Bills{Fifties: 10, Twenties: 0}, bills)
	})

	t.Run("backs off when remainder is not a multiple of 20", func(t *testing.T) {
		// 110: two fifties leave 10, one fifty leaves 60.
		bills, err := SplitBills(110)
		assert.NoError(t, err)
		assert.Equal(t, Bills{Fifties: 1, Twenties: 3}, bills)

		bills, err = SplitBills(90)
		assert.NoError(t, err)
		assert.Equal(t, Bills{Fifties: 1, Twenties: 2}, bills)
	})

	t.Run("pure twenties", func(t *testing.T) {
		bills, err := SplitBills(40)
		assert.NoError(t, err)
		assert.Equal(t, Bills{Fifties: 0, Twenties: 2}, bills)
	})

	t.Run("infeasible amounts", func(t *testing.T) {
		for _, amount := range []int64{0, -20, 5, 10, 25, 30, 33} {
			_, err := SplitBills(amount)
			assert.ErrorIs(t, err, ErrNotDispensable, "amount %d", amount)
		}
	})

	t.Run("sum always matches", func(t *testing.T) {
		for amount := int64(20); amount <= 1000; amount += 10 {
			bills, err := SplitBills(amount)
			if err != nil {
				continue
			}
			assert.Equal(t, amount, int64(bills.Fifties)*50+int64(bills.Twenties)*20)
		}
	})
}
