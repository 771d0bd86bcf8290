package escrow

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramLocator_Deterministic(t *testing.T) {
	l := NewProgramLocator(Pubkey{0xAA})

	a1, b1, err := l.Locate(raceSeeds("race_1")...)
	require.NoError(t, err)
	a2, b2, err := l.Locate(raceSeeds("race_1")...)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	other, _, err := l.Locate(raceSeeds("race_2")...)
	require.NoError(t, err)
	assert.NotEqual(t, a1, other)

	otherProgram, _, err := NewProgramLocator(Pubkey{0xBB}).Locate(raceSeeds("race_1")...)
	require.NoError(t, err)
	assert.NotEqual(t, a1, otherProgram)
}

func TestProgramLocator_OffCurve(t *testing.T) {
	l := NewProgramLocator(Pubkey{0xAA})
	for i := 0; i < 32; i++ {
		addr, _, err := l.Locate(betSeeds("race", Pubkey{byte(i)})...)
		require.NoError(t, err)
		assert.False(t, isOnCurve(addr[:]))
	}
}

func TestProgramLocator_KindsDoNotCollide(t *testing.T) {
	l := NewProgramLocator(Pubkey{0xAA})
	user := Pubkey{7}

	profile, _, err := l.Locate(profileSeeds(user)...)
	require.NoError(t, err)
	vault, _, err := l.Locate(vaultSeeds(user)...)
	require.NoError(t, err)
	assert.NotEqual(t, profile, vault)
}

func TestProgramLocator_SeedLimits(t *testing.T) {
	l := NewProgramLocator(Pubkey{0xAA})

	_, _, err := l.Locate([]byte("race"), bytes.Repeat([]byte{'x'}, 33))
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	_, _, err = l.Locate([]byte("race"), bytes.Repeat([]byte{'x'}, 32))
	assert.NoError(t, err)

	many := make([][]byte, 17)
	for i := range many {
		many[i] = []byte{byte(i)}
	}
	_, _, err = l.Locate(many...)
	assert.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestPubkey_Text(t *testing.T) {
	zero, err := ParsePubkey("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	k := Pubkey{1, 2, 3, 250}
	parsed, err := ParsePubkey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	var fromText Pubkey
	require.NoError(t, fromText.UnmarshalText([]byte(k.String())))
	assert.Equal(t, k, fromText)

	_, err = ParsePubkey("abc")
	assert.Error(t, err)
	_, err = ParsePubkey("0OIl")
	assert.Error(t, err)
}
