package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic   string
	key     string
	attempt string
}

type fakeRepublisher struct {
	out []published
	err error
}

func (f *fakeRepublisher) Publish(_ context.Context, topic, key string, _ []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{topic: topic, key: key, attempt: headers[AttemptHeader]})
	return nil
}

func newTestConsumer(h BatchHandler, r Republisher) *Consumer {
	return &Consumer{
		cfg:         Config{RetryTopic: "async.retry", DLQTopic: "async.dlq", MaxAttempts: 3},
		handler:     h,
		republisher: r,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestConsumer_Process(t *testing.T) {
	ok := &Message{Topic: "async", Offset: 1, Key: []byte("u1")}
	first := &Message{Topic: "async", Offset: 2, Key: []byte("u2")}
	last := &Message{Topic: "async.retry", Offset: 9, Key: []byte("u3"), Headers: map[string]string{AttemptHeader: "3"}}

	t.Run("failed messages go to retry, exhausted ones to the dead-letter topic", func(t *testing.T) {
		h := &recordingHandler{failOn: map[string]bool{first.ID(): true, last.ID(): true}}
		rp := &fakeRepublisher{}
		c := newTestConsumer(h, rp)

		require.NoError(t, c.process(context.Background(), []*Message{ok, first, last}))
		assert.Equal(t, []published{
			{topic: "async.retry", key: "u2", attempt: "2"},
			{topic: "async.dlq", key: "u3", attempt: "4"},
		}, rp.out)
	})

	t.Run("a successful batch produces nothing", func(t *testing.T) {
		rp := &fakeRepublisher{}
		c := newTestConsumer(&recordingHandler{}, rp)
		require.NoError(t, c.process(context.Background(), []*Message{ok}))
		assert.Empty(t, rp.out)
	})

	t.Run("republish failure blocks the commit", func(t *testing.T) {
		h := &recordingHandler{failOn: map[string]bool{first.ID(): true}}
		c := newTestConsumer(h, &fakeRepublisher{err: errors.New("broker down")})
		assert.Error(t, c.process(context.Background(), []*Message{first}))
	})
}
