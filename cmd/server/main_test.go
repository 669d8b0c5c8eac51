package main

import (
	"context"
	"testing"
	"time"
)

func TestNewCmd(t *testing.T) {
	cmd := newCmd()

	if cmd.Use != "mindmatch-server" {
		t.Errorf("expected use mindmatch-server, got %s", cmd.Use)
	}
	if cmd.Version != releaseVersion {
		t.Errorf("expected version %s, got %s", releaseVersion, cmd.Version)
	}
	if cmd.Flags().Lookup("config") == nil {
		t.Error("expected --config flag")
	}
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	t.Setenv("PORT", "0") // ephemeral port

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- run(ctx, "")
	}()

	// Give the listener a moment to come up, then trigger shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("PORT", "0")
	t.Setenv("RATE_LIMIT", "-1")

	if err := run(context.Background(), ""); err == nil {
		t.Fatal("expected configuration error")
	}
}
