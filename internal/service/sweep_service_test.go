package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sweepRepoStub struct {
	expiredBatches   []int
	retentionBatches []int
	expiredErr       error

	expiredCalls   int
	retentionCalls int
}

func (s *sweepRepoStub) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if s.expiredErr != nil {
		return 0, s.expiredErr
	}
	if s.expiredCalls >= len(s.expiredBatches) {
		return 0, nil
	}
	n := s.expiredBatches[s.expiredCalls]
	s.expiredCalls++
	return n, nil
}

func (s *sweepRepoStub) SweepRetention(ctx context.Context, now time.Time, retention time.Duration, limit int) (int, error) {
	if s.retentionCalls >= len(s.retentionBatches) {
		return 0, nil
	}
	n := s.retentionBatches[s.retentionCalls]
	s.retentionCalls++
	return n, nil
}

func TestSweepRunOnceDrainsBatches(t *testing.T) {
	repo := &sweepRepoStub{
		expiredBatches:   []int{10, 10, 3},
		retentionBatches: []int{10, 4},
	}
	metrics := &metricsStub{}
	svc := NewSweepService(repo, metrics, nil, SweepConfig{BatchSize: 10})

	svc.RunOnce(context.Background())

	// Full batches trigger another pass; the short batch ends the drain.
	assert.Equal(t, 3, repo.expiredCalls)
	assert.Equal(t, 2, repo.retentionCalls)
	assert.Equal(t, 23, metrics.swept["expired"])
	assert.Equal(t, 14, metrics.swept["retention"])
}

func TestSweepRunOnceExpiredFailureStillRunsRetention(t *testing.T) {
	repo := &sweepRepoStub{
		expiredErr:       errors.New("db down"),
		retentionBatches: []int{2},
	}
	metrics := &metricsStub{}
	svc := NewSweepService(repo, metrics, nil, SweepConfig{BatchSize: 10})

	svc.RunOnce(context.Background())

	assert.Equal(t, 1, repo.retentionCalls)
	assert.Equal(t, 2, metrics.swept["retention"])
}

type signalSweepStub struct {
	ran chan struct{}
}

func (s *signalSweepStub) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	select {
	case s.ran <- struct{}{}:
	default:
	}
	return 0, nil
}

func (s *signalSweepStub) SweepRetention(ctx context.Context, now time.Time, retention time.Duration, limit int) (int, error) {
	return 0, nil
}

func TestSweepStartRunsInBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &signalSweepStub{ran: make(chan struct{}, 1)}
	svc := NewSweepService(repo, nil, nil, SweepConfig{Interval: time.Hour})

	svc.Start(ctx)

	// Start returns immediately; the first pass runs on its own goroutine.
	select {
	case <-repo.ran:
	case <-time.After(time.Second):
		t.Fatal("sweep pass did not run")
	}
}

func TestSweepRunOnceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := &sweepRepoStub{expiredBatches: []int{10, 10, 10}}
	svc := NewSweepService(repo, nil, nil, SweepConfig{BatchSize: 10})

	svc.RunOnce(ctx)

	assert.Zero(t, repo.expiredCalls)
}
