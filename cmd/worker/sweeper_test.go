package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"omscore/pkg/logger"
)

type countingDeleter struct {
	calls   atomic.Int32
	deleted int64
	err     error
}

func (d *countingDeleter) DeleteExpired(context.Context) (int64, error) {
	d.calls.Add(1)
	return d.deleted, d.err
}

func TestTokenSweeper_Sweep(t *testing.T) {
	d := &countingDeleter{deleted: 3}
	s := NewTokenSweeper(d, time.Hour, logger.Nop())

	assert.Equal(t, int64(3), s.Sweep(context.Background()))
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestTokenSweeper_SweepError(t *testing.T) {
	d := &countingDeleter{err: errors.New("connection refused")}
	s := NewTokenSweeper(d, time.Hour, logger.Nop())

	assert.Zero(t, s.Sweep(context.Background()))
}

func TestTokenSweeper_RunStopsOnCancel(t *testing.T) {
	d := &countingDeleter{}
	s := NewTokenSweeper(d, 5*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return d.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
