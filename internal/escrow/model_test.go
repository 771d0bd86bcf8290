package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaceStatus_Transitions(t *testing.T) {
	all := []RaceStatus{RaceWaiting, RaceCountdown, RaceRacing, RaceCompleted}
	allowed := map[RaceStatus]map[RaceStatus]bool{
		RaceWaiting:   {RaceCountdown: true, RaceRacing: true},
		RaceCountdown: {RaceRacing: true},
		RaceRacing:    {RaceCompleted: true},
	}

	for _, from := range all {
		assert.True(t, from.Valid())
		for _, to := range all {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, RaceStatus("PAUSED").Valid())
	assert.False(t, RaceStatus("PAUSED").CanTransitionTo(RaceRacing))
}

func TestRaceStatus_AcceptingBets(t *testing.T) {
	assert.True(t, RaceWaiting.AcceptingBets())
	assert.True(t, RaceCountdown.AcceptingBets())
	assert.False(t, RaceRacing.AcceptingBets())
	assert.False(t, RaceCompleted.AcceptingBets())
}

func TestBetStatus_Transitions(t *testing.T) {
	assert.True(t, BetActive.CanTransitionTo(BetWon))
	assert.True(t, BetActive.CanTransitionTo(BetLost))
	assert.False(t, BetActive.CanTransitionTo(BetRakebackClaimed))
	assert.True(t, BetLost.CanTransitionTo(BetRakebackClaimed))
	assert.False(t, BetWon.CanTransitionTo(BetRakebackClaimed))
	assert.False(t, BetRakebackClaimed.CanTransitionTo(BetLost))

	assert.True(t, BetWon.Terminal())
	assert.True(t, BetRakebackClaimed.Terminal())
	assert.False(t, BetLost.Terminal())
	assert.False(t, BetActive.Terminal())
	assert.False(t, BetStatus("VOID").Terminal())
}

func TestRace_CloneCopiesWinner(t *testing.T) {
	w := OutcomeID(3)
	r := &Race{ID: "r", Winner: &w}
	c := r.Clone()
	*c.Winner = 5

	assert.Equal(t, OutcomeID(3), *r.Winner)
	assert.True(t, r.IsWinner(3))
	assert.False(t, (&Race{}).IsWinner(0))
}

func TestUserProfile_ActiveBets(t *testing.T) {
	p := NewUserProfile(Pubkey{1}, 254)
	bet := Address{9}

	assert.NoError(t, p.RegisterActiveBet("r1", bet))
	err := p.RegisterActiveBet("r1", Address{8})
	assert.ErrorIs(t, err, ErrUserAlreadyBet)
	assert.Equal(t, bet, p.ActiveBets["r1"])

	assert.NoError(t, p.RegisterActiveBet("r2", bet))
	p.ClearActiveBet("r1")
	p.ClearActiveBet("r1")
	p.ClearActiveBet("missing")
	assert.False(t, p.HasActiveBet("r1"))
	assert.True(t, p.HasActiveBet("r2"))

	c := p.Clone()
	c.ClearActiveBet("r2")
	assert.True(t, p.HasActiveBet("r2"))

	var zero UserProfile
	assert.NoError(t, zero.RegisterActiveBet("r", bet))
}

func TestError_IsComparesCode(t *testing.T) {
	err := WithMetadata(CodeBetNotLost, "x", map[string]string{"race_id": "r"})
	assert.ErrorIs(t, err, ErrBetNotLost)
	assert.NotErrorIs(t, err, ErrUserWon)
	assert.Equal(t, CodeBetNotLost, CodeOf(err))
	assert.Equal(t, CodeUnknown, CodeOf(assert.AnError))

	wrapped := Wrap(CodeConflict, "conflict", ErrWriteConflict)
	assert.ErrorIs(t, wrapped, ErrWriteConflict)
	assert.Equal(t, "conflict: write conflict", wrapped.Error())
}
