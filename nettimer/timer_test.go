package nettimer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/obarthel/amiga-sana-ii-tftpclient/nettimer"
)

func TestTimerFires(t *testing.T) {
	tm := nettimer.New()
	tm.Start(10 * time.Millisecond)

	select {
	case <-tm.C():
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestRestartCancelsPreviousInterval(t *testing.T) {
	tm := nettimer.New()
	tm.Start(20 * time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	tm.Start(200 * time.Millisecond)

	select {
	case <-tm.C():
		t.Fatal("stale interval fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopSuppressesExpiry(t *testing.T) {
	tm := nettimer.New()
	tm.Start(10 * time.Millisecond)
	tm.Stop()

	select {
	case <-tm.C():
		t.Fatal("expiry delivered after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
