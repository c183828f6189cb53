package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step is one recorded call outcome and the state expected after it.
type step struct {
	ok       bool
	wantOpen bool
}

func replay(t *testing.T, b *Breaker, steps []step) {
	t.Helper()
	for i, st := range steps {
		if st.ok {
			b.RecordSuccess()
		} else {
			b.RecordFailure()
		}
		require.Equal(t, st.wantOpen, b.IsOpen(), "after step %d", i)
	}
}

func TestBreaker(t *testing.T) {
	fail := func(open bool) step { return step{ok: false, wantOpen: open} }
	pass := func(open bool) step { return step{ok: true, wantOpen: open} }

	cases := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name:  "opens on the threshold failure",
			opts:  []Option{WithFailureThreshold(3)},
			steps: []step{fail(false), fail(false), fail(true)},
		},
		{
			name:  "success clears the failure streak",
			opts:  []Option{WithFailureThreshold(3)},
			steps: []step{fail(false), fail(false), pass(false), fail(false), fail(false), fail(true)},
		},
		{
			name:  "closes after enough successes",
			opts:  []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{fail(true), pass(true), pass(false)},
		},
		{
			name:  "failure while open restarts the success count",
			opts:  []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{fail(true), pass(true), fail(true), pass(true), pass(false)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			replay(t, New("ci-store", tc.opts...), tc.steps)
		})
	}
}

func TestBreaker_StateChanges(t *testing.T) {
	b := New("ci-store", WithFailureThreshold(1))
	assert.Equal(t, "ci-store", b.Name())
	assert.Equal(t, "closed", b.State().String())

	open, change := b.RecordFailure()
	assert.True(t, open)
	assert.True(t, change.Opened)

	open, change = b.RecordFailure()
	assert.True(t, open)
	assert.False(t, change.Opened, "already open")

	closed, change := b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
}

func TestBreaker_Cooldown(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := New("ci-store", WithFailureThreshold(1), WithCooldown(5*time.Second))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(3 * time.Second)
	b.RecordFailure()
	now = now.Add(3 * time.Second)
	assert.False(t, b.Allow(), "a failed probe restarts the cooldown")

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}
