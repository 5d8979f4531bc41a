package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Presenter recomputes the remaining-time display for a deadline on a fixed
// one-second cadence. It emits an initial snapshot immediately, then one per
// tick, and on the first observation that the deadline has passed it emits
// the terminal display and stops scheduling entirely. The ticker is released
// on every exit path; a presenter that kept ticking after its auction ended
// or after the observer navigated away would leak.
type Presenter struct {
	clock    clockwork.Clock
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Start begins presenting the countdown to endTime, invoking emit with each
// display snapshot. emit is called from the presenter's own goroutine; the
// final invocation carries Display.Ended == true unless Stop wins the race.
func Start(clock clockwork.Clock, endTime time.Time, emit func(Display)) *Presenter {
	p := &Presenter{
		clock:  clock,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go p.run(endTime, emit)
	return p
}

// Stop halts the countdown and releases its ticker. It blocks until the
// presenter goroutine has exited, so no emit runs after Stop returns. Safe
// to call more than once.
func (p *Presenter) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

func (p *Presenter) run(endTime time.Time, emit func(Display)) {
	defer close(p.doneCh)

	first := Format(endTime.Sub(p.clock.Now()))
	emit(first)
	if first.Ended {
		return
	}

	ticker := p.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.Chan():
			display := Format(endTime.Sub(p.clock.Now()))
			emit(display)
			if display.Ended {
				log.Debug().Time("end_time", endTime).Msg("countdown reached zero, releasing ticker")
				return
			}
		}
	}
}
