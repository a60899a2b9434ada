package guard

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	closed   atomic.Int32
	closeErr error
}

func (f *fakeCloser) Close() error {
	f.closed.Add(1)
	return f.closeErr
}

func TestGuardConcurrentAcquire(t *testing.T) {
	var g Guard
	const n = 64

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.Acquire() {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one acquire must succeed")
	assert.True(t, g.Running())
}

func TestGuardReleaseAllowsOneMore(t *testing.T) {
	var g Guard
	require.True(t, g.Acquire())
	require.False(t, g.Acquire())

	assert.True(t, g.Release())
	assert.False(t, g.Release(), "release is idempotent")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestSharedOpensOnceClosesOnLast(t *testing.T) {
	res := &fakeCloser{}
	var opens atomic.Int32
	s := NewShared(func() (io.Closer, error) {
		opens.Add(1)
		return res, nil
	}, nil)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Retain())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), opens.Load())
	assert.Equal(t, n, s.Refs())
	assert.True(t, s.Running())

	for i := 0; i < n-1; i++ {
		require.NoError(t, s.Release())
		assert.True(t, s.Running(), "resource must stay open while owners remain")
		assert.Equal(t, int32(0), res.closed.Load())
	}

	require.NoError(t, s.Release())
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), res.closed.Load())
	assert.Equal(t, 0, s.Refs())

	assert.ErrorIs(t, s.Release(), ErrNotRetained)
}

func TestSharedOpenFailureRetriedByLaterOwner(t *testing.T) {
	bindErr := errors.New("address already in use")
	res := &fakeCloser{}
	var attempts atomic.Int32
	s := NewShared(func() (io.Closer, error) {
		if attempts.Add(1) == 1 {
			return nil, bindErr
		}
		return res, nil
	}, nil)

	err := s.Retain()
	require.ErrorIs(t, err, bindErr)
	assert.False(t, s.Running())
	assert.Equal(t, 1, s.Refs(), "failed open still counts as an owner")

	require.NoError(t, s.Retain())
	assert.True(t, s.Running())
	assert.Equal(t, int32(2), attempts.Load())

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.Equal(t, int32(1), res.closed.Load())
}

func TestSharedCloseErrorStillReleases(t *testing.T) {
	closeErr := errors.New("close failed")
	res := &fakeCloser{closeErr: closeErr}
	var opens atomic.Int32
	s := NewShared(func() (io.Closer, error) {
		opens.Add(1)
		return res, nil
	}, nil)

	require.NoError(t, s.Retain())
	err := s.Release()
	assert.ErrorIs(t, err, closeErr)
	assert.False(t, s.Running(), "guard must be released even if close fails")

	require.NoError(t, s.Retain())
	assert.Equal(t, int32(2), opens.Load())
}
