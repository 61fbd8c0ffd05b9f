package cmd

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// blockingServer stops serving as soon as Shutdown starts, then holds Shutdown
// until release is closed, like an http.Server draining a long-lived feed.
type blockingServer struct {
	stopped  chan struct{}
	release  chan struct{}
	drained  atomic.Bool
	startErr error
}

func newBlockingServer() *blockingServer {
	return &blockingServer{stopped: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingServer) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return nil
}

func (s *blockingServer) Shutdown(ctx context.Context) error {
	close(s.stopped)
	select {
	case <-s.release:
		s.drained.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestServeUntilSignal_WaitsForShutdown(t *testing.T) {
	srv := newBlockingServer()
	sig := make(chan os.Signal, 1)
	returned := make(chan error, 1)

	go func() { returned <- serveUntilSignal(srv, sig, 5*time.Second) }()
	sig <- syscall.SIGTERM

	select {
	case err := <-returned:
		t.Fatalf("returned before shutdown finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(srv.release)
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("serveUntilSignal() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntilSignal did not return after shutdown")
	}
	if !srv.drained.Load() {
		t.Error("shutdown should have drained before returning")
	}
}

func TestServeUntilSignal_StartError(t *testing.T) {
	srv := newBlockingServer()
	srv.startErr = errors.New("address in use")

	err := serveUntilSignal(srv, make(chan os.Signal), time.Second)
	if !errors.Is(err, srv.startErr) {
		t.Errorf("expected start error, got %v", err)
	}
}
