package util

import (
	"context"
	"testing"
	"time"
)

func TestThrottle_BurstThenInterval(t *testing.T) {
	th := NewThrottle(80*time.Millisecond, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		waited, err := th.Wait(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if waited > 20*time.Millisecond {
			t.Fatalf("run %d inside the burst waited %s", i, waited)
		}
	}

	waited, err := th.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if waited < 40*time.Millisecond {
		t.Fatalf("expected the third run to be delayed, waited %s", waited)
	}
}

func TestThrottle_ZeroIntervalNeverBlocks(t *testing.T) {
	th := NewThrottle(0, 0)
	for i := 0; i < 50; i++ {
		if _, err := th.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

func TestThrottle_WaitHonorsContext(t *testing.T) {
	th := NewThrottle(time.Hour, 1)
	if _, err := th.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := th.Wait(ctx); err == nil {
		t.Fatal("expected an error once the context is done")
	}
}
