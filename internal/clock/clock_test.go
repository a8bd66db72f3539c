package clock

import (
	"testing"
	"time"
)

func TestSystemTickerFires(t *testing.T) {
	t.Parallel()

	ticker := System{}.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatalf("expected a tick")
	}
}
