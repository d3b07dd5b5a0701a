package clock_test

import (
	"testing"
	"time"

	"github.com/lyfeumbria/manager/internal/clock"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresInOrder(t *testing.T) {
	c := clock.NewFake(epoch)
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(3 * time.Second)
	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, epoch.Add(3*time.Second), c.Now())

	c.Advance(2 * time.Second)
	require.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestFake_CallbackSeesDeadlineTime(t *testing.T) {
	c := clock.NewFake(epoch)
	var at time.Time
	c.AfterFunc(time.Minute, func() { at = c.Now() })

	c.Advance(time.Hour)
	require.Equal(t, epoch.Add(time.Minute), at)
}

func TestFake_TimersScheduledByCallbacksFire(t *testing.T) {
	c := clock.NewFake(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 5 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	require.Equal(t, 5, count)
	require.Zero(t, c.PendingTimers())
}

func TestFake_Stop(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, tm.Stop())
	require.False(t, tm.Stop(), "second stop reports already stopped")

	c.Advance(time.Minute)
	require.False(t, fired)
}

func TestFake_Ticker(t *testing.T) {
	c := clock.NewFake(epoch)
	tk := c.NewTicker(time.Second)
	defer tk.Stop()

	select {
	case <-tk.C():
		t.Fatal("ticker fired before time moved")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-tk.C():
		require.Equal(t, epoch.Add(time.Second), got)
	default:
		t.Fatal("expected a tick")
	}
}
