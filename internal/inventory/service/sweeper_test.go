package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"stockpile/pkg/logger"
	"stockpile/pkg/model"
)

type stubManager struct {
	ReservationManager
	sweeps atomic.Int64
}

func (s *stubManager) SweepExpired(ctx context.Context) (*model.SweepResult, error) {
	s.sweeps.Add(1)
	return &model.SweepResult{}, nil
}

func TestSweepRunner_TicksAndStops(t *testing.T) {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})

	stub := &stubManager{}
	runner := NewSweepRunner(stub, 10*time.Millisecond, log)
	runner.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for stub.sweeps.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if stub.sweeps.Load() < 2 {
		t.Fatal("expected the runner to sweep at least twice")
	}

	runner.Stop()
	after := stub.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	if stub.sweeps.Load() != after {
		t.Error("expected no sweeps after Stop")
	}
}

func TestSweepRunner_StopsOnContextCancel(t *testing.T) {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})

	stub := &stubManager{}
	runner := NewSweepRunner(stub, 10*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	cancel()

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not exit after context cancellation")
	}
}
