// Package race implements the race-control engine: the phase state machine,
// the start-light sequencer and the lap timing logic. The Engine is the
// single source of truth for all race data.
package race

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trackside/racectl/internal/models"
)

// Starter publishes the trackside "go" signal the instant the race enters
// the running phase (e.g. to the MQTT start topic). Implementations must not
// block: the engine calls PublishStart while holding its state lock.
type Starter interface {
	PublishStart() error
}

// Broadcaster receives every committed state transition for viewer fan-out.
// Publish must not block.
type Broadcaster interface {
	Publish(ev models.Event)
}

// Options configure a race Engine.
type Options struct {
	Tracks   []int         // track ids, one per physical sensor gate
	MinLap   time.Duration // 0 disables the spurious double-trigger guard
	Sequence Sequencer
	Clock    Clock
}

type track struct {
	id       int
	laps     []models.Lap
	lapStart time.Time // current-lap anchor, valid only while running
}

// Engine owns all race data. Viewer commands, sensor triggers and sequencer
// stage callbacks are three concurrent mutation sources; every one of them
// is serialized under the engine mutex so no two commands interleave
// mid-transition. Phase only moves along
// idle → sequencing → running → finished, with reset returning to idle from
// any phase.
type Engine struct {
	mu      sync.Mutex
	phase   models.RacePhase
	tracks  []*track
	gen     uint64             // sequencer generation; stale callbacks are no-ops
	cancel  context.CancelFunc // cancels the in-flight sequencer, nil when none
	opts    Options
	clock   Clock
	bus     Broadcaster
	starter Starter
}

// New creates an idle Engine. starter may be nil when no outbound go-signal
// transport is configured.
func New(opts Options, bus Broadcaster, starter Starter) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if len(opts.Tracks) == 0 {
		opts.Tracks = []int{1, 2}
	}
	e := &Engine{
		phase:   models.PhaseIdle,
		opts:    opts,
		clock:   opts.Clock,
		bus:     bus,
		starter: starter,
	}
	for _, id := range opts.Tracks {
		e.tracks = append(e.tracks, &track{id: id})
	}
	return e
}

// Snapshot returns a deep copy of the current race state.
func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start begins a new race: clears all laps, enters the light sequence and
// spawns the sequencer. Valid only from idle; anything else is a reported
// no-op.
func (e *Engine) Start() *models.AppError {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != models.PhaseIdle {
		return models.ErrConflict("cannot start: race is " + string(e.phase))
	}

	e.clearLocked()
	e.phase = models.PhaseSequencing
	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	snap := e.snapshotLocked()
	e.bus.Publish(models.Event{Type: models.EventReset, State: &snap})
	slog.Info("race start sequence begins", "lights", e.opts.Sequence.Lights)

	seq := e.opts.Sequence
	go func() {
		defer cancel()
		if err := seq.Run(ctx,
			func(light int) { e.lightOn(gen, light) },
			func() { e.lightsOut(gen) },
		); err != nil {
			slog.Debug("start sequence aborted", "err", err)
		}
	}()
	return nil
}

// lightOn is the sequencer's per-stage callback.
func (e *Engine) lightOn(gen uint64, light int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.phase != models.PhaseSequencing {
		return
	}
	e.bus.Publish(models.Event{
		Type:  models.EventLight,
		Light: &models.Light{ID: light, State: "on"},
	})
}

// lightsOut completes the start sequence: anchors every track's current-lap
// timer at now, enters running, publishes the go signal exactly once and
// broadcasts the start to all viewers.
func (e *Engine) lightsOut(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.phase != models.PhaseSequencing {
		return
	}

	now := e.clock.Now()
	for _, t := range e.tracks {
		t.lapStart = now
	}
	e.phase = models.PhaseRunning
	e.cancel = nil

	e.bus.Publish(models.Event{Type: models.EventLightsOut})
	if e.starter != nil {
		if err := e.starter.PublishStart(); err != nil {
			slog.Warn("go signal publish failed", "err", err)
		}
	}
	snap := e.snapshotLocked()
	e.bus.Publish(models.Event{Type: models.EventStartRace, State: &snap})
	slog.Info("lights out, race running")
}

// LapTrigger records a completed lap for the given track at the given
// timestamp. The returned error describes why a trigger was rejected;
// rejections are expected (sensors fire outside races) and callers drop
// them.
func (e *Engine) LapTrigger(trackID int, at time.Time) (models.Lap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != models.PhaseRunning {
		return models.Lap{}, ErrNotRunning
	}
	t := e.trackLocked(trackID)
	if t == nil {
		return models.Lap{}, ErrUnknownTrack
	}
	d, err := SplitLap(t.lapStart, at, e.opts.MinLap)
	if err != nil {
		return models.Lap{}, err
	}

	lap := models.Lap{
		Track:    t.id,
		Seq:      len(t.laps) + 1,
		Time:     models.Seconds(d),
		Recorded: at,
	}
	t.laps = append(t.laps, lap)
	t.lapStart = at

	e.bus.Publish(models.Event{Type: models.EventLapFinish, Lap: &lap})
	slog.Info("lap recorded", "track", lap.Track, "seq", lap.Seq, "lap_time_sec", d.Seconds())
	return lap, nil
}

// Stop ends the race and publishes final results with fastest-lap markers.
// Valid while running, or during the light sequence as a manual abort.
func (e *Engine) Stop() *models.AppError {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != models.PhaseRunning && e.phase != models.PhaseSequencing {
		return models.ErrConflict("cannot stop: race is " + string(e.phase))
	}

	e.abortSequenceLocked()
	e.phase = models.PhaseFinished
	for _, t := range e.tracks {
		t.lapStart = time.Time{}
	}

	snap := e.snapshotLocked()
	e.bus.Publish(models.Event{Type: models.EventRaceFinished, State: &snap})
	slog.Info("race finished")
	return nil
}

// Reset returns the engine to idle from any phase, clearing all race data.
// Resetting an already idle engine rebroadcasts the cleared snapshot so
// every viewer settles on the same state.
func (e *Engine) Reset() *models.AppError {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abortSequenceLocked()
	e.clearLocked()
	e.phase = models.PhaseIdle

	snap := e.snapshotLocked()
	e.bus.Publish(models.Event{Type: models.EventReset, State: &snap})
	slog.Info("race state reset")
	return nil
}

// Close aborts any in-flight light sequence. Called on daemon shutdown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortSequenceLocked()
}

// abortSequenceLocked cancels the running sequencer, if any, and bumps the
// generation so callbacks already past the cancellation check become no-ops.
func (e *Engine) abortSequenceLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

func (e *Engine) clearLocked() {
	for _, t := range e.tracks {
		t.laps = nil
		t.lapStart = time.Time{}
	}
}

func (e *Engine) trackLocked(id int) *track {
	for _, t := range e.tracks {
		if t.id == id {
			return t
		}
	}
	return nil
}

// snapshotLocked builds the exportable state. Fastest-lap markers are
// populated once the race is finished.
func (e *Engine) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Phase:  e.phase,
		Tracks: make([]models.Track, 0, len(e.tracks)),
	}
	for _, t := range e.tracks {
		mt := models.Track{ID: t.id, Laps: make([]models.Lap, len(t.laps))}
		copy(mt.Laps, t.laps)
		if e.phase == models.PhaseFinished {
			mt.Fastest = fastestLap(mt.Laps)
		}
		snap.Tracks = append(snap.Tracks, mt)
	}
	return snap
}

// fastestLap returns the minimum-duration lap. Strict less-than keeps the
// earliest sequence number among ties.
func fastestLap(laps []models.Lap) *models.Lap {
	var best *models.Lap
	for i := range laps {
		if best == nil || laps[i].Time < best.Time {
			best = &laps[i]
		}
	}
	return best
}
