package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/outbox-relay/publisher"
	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

type fakeOutbox struct {
	entries   []events.OutboxEntry
	published []int64
	dead      []int64
}

func (o *fakeOutbox) Pending(_ context.Context, limit int) ([]events.OutboxEntry, error) {
	out := make([]events.OutboxEntry, 0, len(o.entries))
	for _, e := range o.entries {
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (o *fakeOutbox) remove(seq int64) {
	for i, e := range o.entries {
		if e.Seq == seq {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

func (o *fakeOutbox) MarkPublished(_ context.Context, seq int64) error {
	o.published = append(o.published, seq)
	o.remove(seq)
	return nil
}

func (o *fakeOutbox) MarkFailed(_ context.Context, seq int64, _ string, dead bool) error {
	if dead {
		o.dead = append(o.dead, seq)
		o.remove(seq)
		return nil
	}
	for i := range o.entries {
		if o.entries[i].Seq == seq {
			o.entries[i].Attempts++
		}
	}
	return nil
}

type fakePublisher struct {
	fail map[string]bool // por id do envelope
	sent []string
	dlq  []publisher.DeadLetter
}

func (p *fakePublisher) Publish(_ context.Context, env events.Envelope) error {
	if p.fail[env.ID] {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, env.ID)
	return nil
}

func (p *fakePublisher) PublishDead(_ context.Context, dl publisher.DeadLetter) error {
	p.dlq = append(p.dlq, dl)
	return nil
}

func entry(seq int64, id string) events.OutboxEntry {
	return events.OutboxEntry{Seq: seq, Envelope: events.Envelope{ID: id, Type: events.TypeBetPlaced, RaceID: "race_1"}}
}

func newRelay(o *fakeOutbox, p *fakePublisher) *Relay {
	return &Relay{
		Log:         zap.NewNop(),
		Outbox:      o,
		Publisher:   p,
		DLQ:         p,
		BatchSize:   10,
		Interval:    time.Millisecond,
		MaxAttempts: 3,
	}
}

func TestRelay_PublishesInOrder(t *testing.T) {
	o := &fakeOutbox{entries: []events.OutboxEntry{entry(1, "a"), entry(2, "b"), entry(3, "c")}}
	p := &fakePublisher{}
	published := 0
	r := newRelay(o, p)
	r.OnPublished = func() { published++ }

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, p.sent)
	assert.Equal(t, []int64{1, 2, 3}, o.published)
	assert.Equal(t, 3, published)
	assert.Empty(t, o.entries)
}

func TestRelay_FailureStopsBatch(t *testing.T) {
	o := &fakeOutbox{entries: []events.OutboxEntry{entry(1, "a"), entry(2, "b"), entry(3, "c")}}
	p := &fakePublisher{fail: map[string]bool{"b": true}}
	r := newRelay(o, p)

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a"}, p.sent)
	require.Len(t, o.entries, 2)
	assert.Equal(t, 1, o.entries[0].Attempts)

	// o broker volta: b e c saem na ordem
	p.fail = nil
	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c"}, p.sent)
}

func TestRelay_DeadLetterAfterMaxAttempts(t *testing.T) {
	o := &fakeOutbox{entries: []events.OutboxEntry{entry(1, "a"), entry(2, "b")}}
	p := &fakePublisher{fail: map[string]bool{"a": true}}
	dead := 0
	r := newRelay(o, p)
	r.OnDead = func() { dead++ }

	for i := 0; i < 2; i++ {
		_, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, p.dlq)
	}

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, p.dlq, 1)
	assert.Equal(t, int64(1), p.dlq[0].Seq)
	assert.Equal(t, 3, p.dlq[0].Attempts)
	assert.Equal(t, "broker unavailable", p.dlq[0].Error)
	assert.Equal(t, []int64{1}, o.dead)
	assert.Equal(t, []string{"b"}, p.sent)
	assert.Equal(t, 1, dead)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	o := &fakeOutbox{entries: []events.OutboxEntry{entry(1, "a")}}
	p := &fakePublisher{}
	r := newRelay(o, p)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, p.sent)
}
