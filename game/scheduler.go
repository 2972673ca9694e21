package game

import (
	"sync"
	"time"
)

// ClockScheduler runs callbacks on wall-clock timers. Each callback runs on
// its own goroutine.
type ClockScheduler struct{}

func NewClockScheduler() *ClockScheduler {
	return &ClockScheduler{}
}

func (s *ClockScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

func (s *ClockScheduler) After(delay time.Duration, fn func()) Timer {
	return &afterTimer{timer: time.AfterFunc(delay, fn)}
}

type tickerTimer struct {
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func (t *tickerTimer) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTimer) Stop() {
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type afterTimer struct {
	timer *time.Timer
}

func (t *afterTimer) Stop() {
	t.timer.Stop()
}
