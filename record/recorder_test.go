// SPDX-License-Identifier: EPL-2.0

package record

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSink is a goroutine-safe io.WriteCloser.
type memSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	err    error
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.buf.Write(p)
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) snapshot() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes()), s.closed
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, 4, 16)
	assert.ErrorIs(t, err, ErrNilSink)

	_, err = New(&memSink{}, 0, 16)
	assert.ErrorIs(t, err, ErrInvalidRing)
}

func TestRecorder_WritesInOrderAndCloses(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	rec, err := New(sink, 8, 4, WithName("mics"), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "mics", rec.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	var want []byte
	for i := range 20 {
		chunk := []byte{byte(i), byte(i + 1), byte(i + 2), byte(i + 3)}
		want = append(want, chunk...)
		for !rec.Tee(chunk) {
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	require.NoError(t, <-done)

	got, closed := sink.snapshot()
	assert.True(t, closed, "Run closes the sink")
	assert.Equal(t, want, got)
	assert.EqualValues(t, len(want), rec.Written())
	assert.EqualValues(t, 20, rec.Chunks())
}

func TestRecorder_DrainsAfterCancel(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	rec, err := New(sink, 4, 2, WithPollInterval(time.Hour))
	require.NoError(t, err)

	require.True(t, rec.Tee([]byte{1, 2}))
	require.True(t, rec.Tee([]byte{3, 4}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	got, _ := sink.snapshot()
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestRecorder_CountsDrops(t *testing.T) {
	t.Parallel()

	rec, err := New(&memSink{}, 2, 2)
	require.NoError(t, err)

	// Nobody drains, so the third chunk is dropped.
	assert.True(t, rec.Tee([]byte{1, 1}))
	assert.True(t, rec.Tee([]byte{2, 2}))
	assert.False(t, rec.Tee([]byte{3, 3}))
	assert.EqualValues(t, 1, rec.Dropped())
}

func TestRecorder_WriteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	sink := &memSink{err: boom}
	rec, err := New(sink, 2, 2)
	require.NoError(t, err)
	require.True(t, rec.Tee([]byte{1, 2}))

	err = rec.Run(context.Background())
	assert.ErrorIs(t, err, boom)

	_, closed := sink.snapshot()
	assert.True(t, closed, "the sink is closed even after a write error")
}
