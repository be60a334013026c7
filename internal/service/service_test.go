// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/catalog"
)

// fakeServer scripts HTTPServer behavior.
type fakeServer struct {
	listenErr error
	released  chan struct{}
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{released: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.released
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.released)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if server.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d, want 1", server.shutdowns.Load())
	}
}

func TestHTTPServiceSurfacesListenError(t *testing.T) {
	server := newFakeServer()
	server.listenErr = errors.New("address in use")
	svc := NewHTTPService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Fatalf("Serve = %v, want wrapped listen error", err)
	}
}

func writeArtifact(t *testing.T, path, version string) {
	t.Helper()
	data := `{
		"model_version": "` + version + `",
		"items": [{"id": "dune", "title": "Dune", "features": {"scifi": 0.9}}],
		"item_factors": {"dune": [0.5, 0.5]},
		"users": []
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

func TestModelReloadInstallsNewVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	writeArtifact(t, path, "v1")

	provider := catalog.NewSnapshotProvider(zerolog.Nop())
	t.Cleanup(func() { provider.Close() })

	svc := NewModelReloadService(path, time.Hour, provider, zerolog.Nop())

	svc.reload()
	snap := provider.Current()
	if snap == nil || snap.Version != "v1" {
		t.Fatalf("snapshot after first reload = %+v, want v1", snap)
	}
	firstGen := snap.Generation

	// Unchanged version must not reinstall.
	svc.reload()
	if provider.Current().Generation != firstGen {
		t.Error("unchanged artifact was reinstalled")
	}

	writeArtifact(t, path, "v2")
	svc.reload()
	snap = provider.Current()
	if snap.Version != "v2" {
		t.Fatalf("snapshot version = %q, want v2", snap.Version)
	}
	if snap.Generation == firstGen {
		t.Error("generation did not advance on reinstall")
	}
}

func TestModelReloadKeepsServingOnBadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	writeArtifact(t, path, "v1")

	provider := catalog.NewSnapshotProvider(zerolog.Nop())
	t.Cleanup(func() { provider.Close() })

	svc := NewModelReloadService(path, time.Hour, provider, zerolog.Nop())
	svc.reload()

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("corrupt artifact: %v", err)
	}
	svc.reload()

	snap := provider.Current()
	if snap == nil || snap.Version != "v1" {
		t.Fatalf("previous snapshot lost after bad reload: %+v", snap)
	}
}

// countingWarmer records WarmRecent invocations.
type countingWarmer struct {
	calls atomic.Int32
}

func (c *countingWarmer) WarmRecent(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestWarmServiceFollowsModelSwaps(t *testing.T) {
	provider := catalog.NewSnapshotProvider(zerolog.Nop())
	t.Cleanup(func() { provider.Close() })

	warmer := &countingWarmer{}
	svc := NewWarmService(provider, warmer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		svc.Serve(ctx)
		close(done)
	}()

	// Give the subscriber time to attach before publishing.
	time.Sleep(100 * time.Millisecond)

	snap := catalog.NewModelSnapshot("v1", []catalog.Item{{ID: "dune"}}, nil, nil)
	provider.Install(snap)

	deadline := time.After(2 * time.Second)
	for warmer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("warmer never ran after model swap")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("warm service did not stop on cancellation")
	}
}
