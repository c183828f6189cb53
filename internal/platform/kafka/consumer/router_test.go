package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	seen   []string
	failOn map[string]bool
}

func (h *recordingHandler) HandleBatch(_ context.Context, msgs []*Message) []string {
	var failed []string
	for _, m := range msgs {
		h.seen = append(h.seen, m.ID())
		if h.failOn[m.ID()] {
			failed = append(failed, m.ID())
		}
	}
	return failed
}

func TestRouter_HandleBatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a1 := &Message{Topic: "a", Offset: 1}
	b1 := &Message{Topic: "b", Offset: 1}
	a2 := &Message{Topic: "a", Offset: 2}
	c1 := &Message{Topic: "c", Offset: 1}

	t.Run("groups by topic and merges failures", func(t *testing.T) {
		ha := &recordingHandler{failOn: map[string]bool{a2.ID(): true}}
		hb := &recordingHandler{}
		r := NewRouter(logger, nil)
		r.Register("a", ha)
		r.Register("b", hb)

		failed := r.HandleBatch(context.Background(), []*Message{a1, b1, a2, c1})

		assert.Equal(t, []string{a1.ID(), a2.ID()}, ha.seen)
		assert.Equal(t, []string{b1.ID()}, hb.seen)
		assert.Equal(t, []string{a2.ID()}, failed)
	})

	t.Run("fallback receives unrouted topics", func(t *testing.T) {
		fb := &recordingHandler{}
		r := NewRouter(logger, fb)
		r.HandleBatch(context.Background(), []*Message{c1})
		assert.Equal(t, []string{c1.ID()}, fb.seen)
	})
}

func TestMessage_Attempt(t *testing.T) {
	assert.Equal(t, 1, (&Message{}).Attempt())
	assert.Equal(t, 3, (&Message{Headers: map[string]string{AttemptHeader: "3"}}).Attempt())
	assert.Equal(t, 1, (&Message{Headers: map[string]string{AttemptHeader: "junk"}}).Attempt())
}
