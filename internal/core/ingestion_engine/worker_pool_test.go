package ingestion_engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

func startPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewWorkerPool(8)
	p.Start(ctx, workers)
	t.Cleanup(func() {
		p.Close()
		cancel()
	})
	return p
}

func TestSubmitAwait(t *testing.T) {
	p := startPool(t, 2)
	task, err := Submit(context.Background(), p, func(context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatal(err)
	}
	v, err := task.Await(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("await = %d, %v", v, err)
	}
}

func TestAwaitTimeoutAbandonsTask(t *testing.T) {
	p := startPool(t, 1)
	release := make(chan struct{})
	task, err := Submit(context.Background(), p, func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := task.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
	<-task.Done()
}

func TestSubmitRecoversPanics(t *testing.T) {
	p := startPool(t, 1)
	task, _ := Submit(context.Background(), p, func(context.Context) (int, error) { panic("boom") })
	if _, err := task.Await(context.Background()); err == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewWorkerPool(1)
	p.Start(context.Background(), 1)
	p.Close()
	if _, err := Submit(context.Background(), p, func(context.Context) (int, error) { return 0, nil }); !errors.Is(err, core.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestSubmitSkipsExpiredWork(t *testing.T) {
	p := startPool(t, 1)
	release := make(chan struct{})
	first, _ := Submit(context.Background(), p, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	second, err := Submit(ctx, p, func(context.Context) (int, error) {
		ran = true
		return 2, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	close(release)
	<-first.Done()
	<-second.Done()

	if ran {
		t.Fatal("work whose context ended while queued must not run")
	}
	if _, err := second.Await(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCloseReleasesBlockedSubmitter(t *testing.T) {
	p := NewWorkerPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	p.Start(ctx, 1)

	// One task occupies the worker, one fills the queue.
	Submit(context.Background(), p, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	Submit(context.Background(), p, func(context.Context) (int, error) { return 0, nil })

	submitErr := make(chan error, 1)
	go func() {
		_, err := Submit(context.Background(), p, func(context.Context) (int, error) { return 0, nil })
		submitErr <- err
	}()

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case err := <-submitErr:
		if err != nil && !errors.Is(err, core.ErrQueueClosed) {
			t.Fatalf("unexpected submit error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submitter was not released by Close")
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the queue drained")
	}
}

type blockingIngestor struct{ release chan struct{} }

func (b blockingIngestor) Run(context.Context, models.IngestRequest) (*models.IngestResult, error) {
	<-b.release
	return &models.IngestResult{Success: true, Added: 1}, nil
}

func TestSchedulerTimeout(t *testing.T) {
	p := startPool(t, 1)
	slow := blockingIngestor{release: make(chan struct{})}
	defer close(slow.release)

	s := NewScheduler(p, slow, 30*time.Millisecond)
	res, err := s.Run(context.Background(), models.IngestRequest{Filename: "slow.pdf"})
	if !errors.Is(err, core.ErrJobTimeout) {
		t.Fatalf("expected ErrJobTimeout, got %v", err)
	}
	if res != nil {
		t.Fatalf("timed out run must not return a result, got %+v", res)
	}
}

func TestSchedulerRunsPipeline(t *testing.T) {
	p := startPool(t, 2)
	s := NewScheduler(p, NewPipeline(staticExtractor{samplePaper}, newStore(), nil), time.Second)
	res, err := s.Run(context.Background(), models.IngestRequest{OwnerID: "o"})
	if err != nil || res.Added != 3 {
		t.Fatalf("run = %+v, %v", res, err)
	}
}
