package race_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackside/racectl/internal/race"
)

func TestSequencerRunsAllStagesInOrder(t *testing.T) {
	seq := race.Sequencer{
		Lights:   4,
		Interval: time.Millisecond,
		HoldMin:  time.Millisecond,
		HoldMax:  2 * time.Millisecond,
	}

	var stages []int
	outs := 0
	err := seq.Run(context.Background(),
		func(light int) { stages = append(stages, light) },
		func() { outs++ },
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stages) != 4 {
		t.Fatalf("stages = %v, want 4 lights", stages)
	}
	for i, s := range stages {
		if s != i+1 {
			t.Errorf("stage %d = %d, want %d", i, s, i+1)
		}
	}
	if outs != 1 {
		t.Errorf("lights-out fired %d times, want 1", outs)
	}
}

func TestSequencerCancelAbortsWithoutLightsOut(t *testing.T) {
	seq := race.Sequencer{
		Lights:   5,
		Interval: time.Millisecond,
		HoldMin:  time.Millisecond,
		HoldMax:  2 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var stages []int
	outs := 0
	err := seq.Run(ctx,
		func(light int) {
			stages = append(stages, light)
			if light == 2 {
				cancel()
			}
		},
		func() { outs++ },
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if len(stages) != 2 {
		t.Errorf("stages = %v, want exactly [1 2]", stages)
	}
	if outs != 0 {
		t.Errorf("lights-out fired %d times after cancel, want 0", outs)
	}
}

func TestSequencerHoldIsWithinBounds(t *testing.T) {
	seq := race.Sequencer{
		Lights:   1,
		Interval: time.Millisecond,
		HoldMin:  20 * time.Millisecond,
		HoldMax:  60 * time.Millisecond,
	}

	var lit, out time.Time
	err := seq.Run(context.Background(),
		func(int) { lit = time.Now() },
		func() { out = time.Now() },
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	hold := out.Sub(lit)
	if hold < 20*time.Millisecond {
		t.Errorf("hold = %s, want at least HoldMin (20ms)", hold)
	}
	// Generous upper bound: scheduling jitter on a loaded machine
	if hold > 200*time.Millisecond {
		t.Errorf("hold = %s, far above HoldMax (60ms)", hold)
	}
}
