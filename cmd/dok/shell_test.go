package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchSignals_StopEndsWatch(t *testing.T) {
	t.Parallel()

	sigs := make(chan os.Signal, 1)
	called := false
	stop := watchSignals(sigs, func(os.Signal) { called = true })

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not wait for the watcher to exit")
	}
	assert.False(t, called)
	stop() // idempotent
}

func TestWatchSignals_DeliversFirstSignal(t *testing.T) {
	t.Parallel()

	sigs := make(chan os.Signal, 1)
	got := make(chan os.Signal, 1)
	stop := watchSignals(sigs, func(sig os.Signal) { got <- sig })

	sigs <- syscall.SIGTERM
	select {
	case sig := <-got:
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(time.Second):
		t.Fatal("signal not delivered")
	}
	stop()
}

func TestSignalExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 130, signalExitCode(syscall.SIGINT))
	assert.Equal(t, 143, signalExitCode(syscall.SIGTERM))
}
