package main

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func memoryApplication(t *testing.T, port int) *Application {
	t.Helper()
	setSecrets(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SWEEP_INTERVAL", "1h")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PORT", strconv.Itoa(port))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.sweeper)
	return app
}

func TestShutdownBeforeRunReturns(t *testing.T) {
	app := memoryApplication(t, 3000)

	done := make(chan error, 1)
	go func() { done <- app.Shutdown() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown blocked on an application that never ran")
	}
}

func TestRunCleansUpWhenServerFails(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	app := memoryApplication(t, port)
	closed := false
	app.closers = append(app.closers, func() error {
		closed = true
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	select {
	case err := <-done:
		require.ErrorContains(t, err, "server failed")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the listener failed")
	}
	require.True(t, closed)
	require.Empty(t, app.closers)

	stopped := make(chan struct{})
	go func() {
		app.sweeper.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper still running after Run returned")
	}
}
