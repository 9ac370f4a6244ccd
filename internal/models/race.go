// Package models defines the data structures for the racectl daemon.
// JSON field names match the dashboard wire format of the original
// installation (status strings, lap_time_sec as fractional seconds).
package models

import (
	"encoding/json"
	"time"
)

// RacePhase is the race-control engine's current high-level mode.
// Exactly one value is live at a time; it is owned by the race engine.
type RacePhase string

const (
	PhaseIdle       RacePhase = "idle"
	PhaseSequencing RacePhase = "sequencing"
	PhaseRunning    RacePhase = "running"
	PhaseFinished   RacePhase = "finished"
)

// Seconds is a time.Duration that marshals as fractional seconds, the unit
// the dashboard expects for lap times.
type Seconds time.Duration

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).Seconds())
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var sec float64
	if err := json.Unmarshal(data, &sec); err != nil {
		return err
	}
	*s = Seconds(time.Duration(sec * float64(time.Second)))
	return nil
}

// Duration returns the underlying time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Lap is one completed lap on one track. Immutable once created; sequence
// numbers are 1-based and dense per track.
type Lap struct {
	Track    int       `json:"track"`
	Seq      int       `json:"seq"`
	Time     Seconds   `json:"lap_time_sec"`
	Recorded time.Time `json:"recorded_at"`
}

// Track is the exported view of one sensor lane: its ordered laps and, in
// finished snapshots, the fastest lap (minimum duration, earliest sequence
// number wins ties). The current-lap start timestamp is engine-internal and
// never exported.
type Track struct {
	ID      int   `json:"id"`
	Laps    []Lap `json:"laps"`
	Fastest *Lap  `json:"fastest,omitempty"`
}

// Snapshot is the full exportable race state, sent to viewers on connect and
// embedded in transition events. Derived from engine state, never mutated
// independently.
type Snapshot struct {
	Phase  RacePhase `json:"status"`
	Tracks []Track   `json:"tracks"`
}

// DeepCopy returns a copy of the snapshot that shares no memory with the
// original.
func (s Snapshot) DeepCopy() Snapshot {
	next := Snapshot{Phase: s.Phase}
	next.Tracks = make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		nt := Track{ID: t.ID}
		nt.Laps = make([]Lap, len(t.Laps))
		copy(nt.Laps, t.Laps)
		if t.Fastest != nil {
			f := *t.Fastest
			nt.Fastest = &f
		}
		next.Tracks[i] = nt
	}
	return next
}

// Info is the system information response.
type Info struct {
	Version string `json:"version"`
	Tracks  int    `json:"tracks"`
}

// Version is the daemon version reported by GET /api/info and in the mDNS
// TXT records.
const Version = "0.2.0"
