package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestQueueEventCoalescing(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"create then write", []Operation{OpCreate, OpWrite}, OpCreate},
		{"writes", []Operation{OpWrite, OpWrite, OpWrite}, OpWrite},
		{"write then remove", []Operation{OpWrite, OpRemove}, OpRemove},
		{"atomic replace", []Operation{OpRename, OpCreate}, OpWrite},
		{"remove then create", []Operation{OpRemove, OpCreate, OpWrite}, OpWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := map[string]Event{}
			for i, op := range tt.ops {
				queueEvent(pending, Event{Path: "/a.toml", Op: op, Time: now.Add(time.Duration(i))})
			}
			got := pending["/a.toml"]
			if got.Op != tt.want {
				t.Errorf("coalesced op = %v, want %v", got.Op, tt.want)
			}
			if !got.Time.Equal(now.Add(time.Duration(len(tt.ops) - 1))) {
				t.Errorf("coalesced time = %v, want latest", got.Time)
			}
		})
	}
}

func TestWatcher_Watch(t *testing.T) {
	w := New()
	if err := w.Watch("relative.toml"); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	files := w.WatchedFiles()
	if len(files) != 1 || !filepath.IsAbs(files[0]) {
		t.Errorf("WatchedFiles() = %v, want one absolute path", files)
	}
}

func TestWatcher_DetectsWriteAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitesmith.toml")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "other.txt")

	w := New(WithDebounce(50 * time.Millisecond))
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var events []Event
	got := make(chan struct{}, 10)
	w.OnChange(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		got <- struct{}{}
	})
	w.OnChange(func(Event) { panic("handler bug") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("a = 2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("no change event received")
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("events = %v, want one coalesced event", events)
	}
	if events[0].Path != path {
		t.Errorf("event path = %q, want %q", events[0].Path, path)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	w := New()
	if err := w.Watch(filepath.Join(t.TempDir(), "c.toml")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = w.Run(context.Background()); err == ErrRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != ErrRunning {
		t.Errorf("second Run() error = %v, want ErrRunning", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
