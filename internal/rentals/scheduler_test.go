package rentals

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vwcamper77/rentals-sync/internal/rentals/model"
)

func TestNewScheduler(t *testing.T) {
	t.Run("registers the batch pass", func(t *testing.T) {
		s, err := NewScheduler(NewSyncer(newFakeRepo()), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(s.Entries()); got != 1 {
			t.Errorf("expected 1 cron entry, got %d", got)
		}
	})

	t.Run("rejects an invalid cron spec", func(t *testing.T) {
		if _, err := NewScheduler(NewSyncer(newFakeRepo()), "not a cron spec"); err == nil {
			t.Fatal("expected an error")
		}
	})
}

// blockingRepo stalls the first pass until released, so a test can fire a
// second trigger while the first is still in flight.
type blockingRepo struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRepo) ListActiveProperties(ctx context.Context) ([]*model.Property, error) {
	if r.calls.Add(1) == 1 {
		r.once.Do(func() { close(r.started) })
		<-r.release
	}
	return nil, nil
}

func (r *blockingRepo) DescribeProperty(ctx context.Context, id string) (*model.Property, error) {
	return nil, nil
}

func (r *blockingRepo) PatchPropertySync(ctx context.Context, id string, patch model.SyncPatch) error {
	return nil
}

func TestSchedulerSkipsOverlappingPass(t *testing.T) {
	repo := newBlockingRepo()
	s, err := NewScheduler(NewSyncer(repo), "@every 1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// WrappedJob carries the SkipIfStillRunning chain the cron engine
	// would run, so triggers can be fired directly without waiting on
	// real cron ticks.
	job := s.Entries()[0].WrappedJob

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()

	<-repo.started
	job.Run() // fires while the first pass is blocked; must be skipped

	close(repo.release)
	<-done

	if got := repo.calls.Load(); got != 1 {
		t.Errorf("expected the overlapping trigger to be skipped, got %d passes", got)
	}
}
