package doc2scorm

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire(context.Context) (*Converter, error)
	Release(*Converter)
	Size() int
	Close() error
} = (*ConverterPool)(nil)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	auto := min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 4, 4},
		{"sequential", 1, 1},
		{"explicit above the automatic cap", 20, 20},
		{"zero is automatic", 0, auto},
		{"negative is automatic", -3, auto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestNewConverterPool_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{-1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		if got := NewConverterPool(tt.n).Size(); got != tt.want {
			t.Errorf("NewConverterPool(%d).Size() = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestConverterPool_LazyCreationAndReuse(t *testing.T) {
	t.Parallel()

	pool := NewConverterPool(2, WithTempDir(t.TempDir()))
	defer pool.Close()

	ctx := context.Background()
	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	pool.Release(a)

	b, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	if a != b {
		t.Error("released converter should be reused before creating another")
	}
	pool.Release(b)

	pool.mu.Lock()
	built := len(pool.all)
	pool.mu.Unlock()
	if built != 1 {
		t.Errorf("built %d converters, want 1", built)
	}
}

func TestConverterPool_BlocksAtCapacity(t *testing.T) {
	t.Parallel()

	pool := NewConverterPool(1)
	defer pool.Close()

	conv, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() at capacity error = %v, want DeadlineExceeded", err)
	}

	done := make(chan *Converter)
	go func() {
		c, _ := pool.Acquire(context.Background())
		done <- c
	}()
	pool.Release(conv)
	select {
	case got := <-done:
		if got != conv {
			t.Error("waiter should receive the released converter")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by Release")
	}
}

func TestConverterPool_CreationError(t *testing.T) {
	t.Parallel()

	pool := NewConverterPool(1, WithAssetPath(filepath.Join(t.TempDir(), "missing")))
	defer pool.Close()

	for range 2 {
		if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrInvalidAssetPath) {
			t.Errorf("Acquire() error = %v, want ErrInvalidAssetPath", err)
		}
	}
	if len(pool.all) != 0 || len(pool.slots) != 0 {
		t.Errorf("failed creation kept %d converters and %d slots", len(pool.all), len(pool.slots))
	}
}

func TestConverterPool_Close(t *testing.T) {
	t.Parallel()

	pool := NewConverterPool(2)
	conv, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("Close() unexpected error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() unexpected error: %v", err)
	}

	// Release after close is a no-op.
	pool.Release(conv)

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrPoolClosed", err)
	}
}

func TestConverterPool_ConcurrentConversions(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	pool := NewConverterPool(3, WithTempDir(tmp))
	defer pool.Close()

	var (
		wg       sync.WaitGroup
		inFlight atomic.Int32
		peak     atomic.Int32
		failures atomic.Int32
	)
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := pool.Acquire(context.Background())
			if err != nil {
				failures.Add(1)
				return
			}
			defer pool.Release(conv)

			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			_, err = conv.Convert(context.Background(), Input{Content: []byte("<p>x</p>"), FileName: "a.html"})
			inFlight.Add(-1)
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("%d conversions failed", failures.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
	assertEmptyDir(t, tmp)
}
