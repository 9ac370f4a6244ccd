package race

import (
	"context"
	"math/rand"
	"time"
)

// Sequencer runs the start-light sequence: Lights illuminate one by one at a
// fixed Interval, then a randomized hold, then lights out. The hold is drawn
// once per race from [HoldMin, HoldMax) so drivers cannot anticipate the
// start.
type Sequencer struct {
	Lights   int
	Interval time.Duration
	HoldMin  time.Duration
	HoldMax  time.Duration
}

// Run drives the sequence, calling stage for each light and out once at the
// end. Every transition is time-driven. Cancelling ctx aborts the pending
// stage; no further callbacks are made after cancellation.
func (s Sequencer) Run(ctx context.Context, stage func(light int), out func()) error {
	for i := 1; i <= s.Lights; i++ {
		if err := sleep(ctx, s.Interval); err != nil {
			return err
		}
		stage(i)
	}
	if err := sleep(ctx, s.hold()); err != nil {
		return err
	}
	out()
	return nil
}

func (s Sequencer) hold() time.Duration {
	if s.HoldMax <= s.HoldMin {
		return s.HoldMin
	}
	return s.HoldMin + time.Duration(rand.Int63n(int64(s.HoldMax-s.HoldMin)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
