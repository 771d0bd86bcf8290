package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinnerPayout(t *testing.T) {
	cases := []struct {
		amount uint64
		want   uint64
	}{
		{amount: 1, want: 0},
		{amount: 2, want: 1},
		{amount: 40, want: 34},
		{amount: 100, want: 86},
		{amount: 999, want: 859},
		{amount: MaxBet, want: 86_000_000_000},
	}
	for _, tc := range cases {
		got := WinnerPayout(tc.amount)
		assert.Equal(t, tc.want, got, "amount %d", tc.amount)
		// profit de vencedor é sempre negativo
		assert.Less(t, int64(got)-int64(tc.amount), int64(0))
	}
}

func TestRakebackAmount_FixedDivisor(t *testing.T) {
	cases := []struct {
		pot  uint64
		want uint64
	}{
		{pot: 0, want: 0},
		{pot: 39, want: 0},
		{pot: 40, want: 1},
		{pot: 100, want: 2},
		{pot: 1_000, want: 25},
		{pot: 10_006, want: 250},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RakebackAmount(tc.pot), "pot %d", tc.pot)
	}
}

// Sem guarda de overflow: a multiplicação em uint64 dá a volta.
func TestWinnerPayout_WrapsOnOverflow(t *testing.T) {
	var amount uint64 = 1 << 60
	wrapped := amount * 86 / 100

	assert.Equal(t, wrapped, WinnerPayout(amount))
	assert.Less(t, WinnerPayout(amount), amount/2)
}

func TestRakebackAmount_WrapsOnOverflow(t *testing.T) {
	var pot uint64 = 1 << 62
	assert.Equal(t, pot*10/100/4, RakebackAmount(pot))
}
