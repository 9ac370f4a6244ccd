package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/trackside/racectl/internal/models"
)

func TestLapMarshalsSecondsOnTheWire(t *testing.T) {
	lap := models.Lap{
		Track: 1,
		Seq:   3,
		Time:  models.Seconds(1234 * time.Millisecond),
	}

	data, err := json.Marshal(lap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal wire: %v", err)
	}
	sec, ok := wire["lap_time_sec"].(float64)
	if !ok {
		t.Fatalf("lap_time_sec missing or not a number: %v", wire)
	}
	if sec != 1.234 {
		t.Errorf("lap_time_sec = %v, want 1.234", sec)
	}

	var back models.Lap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal Lap: %v", err)
	}
	if back.Time.Duration() != 1234*time.Millisecond {
		t.Errorf("round-trip duration = %s, want 1.234s", back.Time.Duration())
	}
}

func TestSnapshotDeepCopy(t *testing.T) {
	fast := models.Lap{Track: 1, Seq: 1, Time: models.Seconds(time.Second)}
	orig := models.Snapshot{
		Phase: models.PhaseFinished,
		Tracks: []models.Track{
			{ID: 1, Laps: []models.Lap{fast}, Fastest: &fast},
		},
	}

	cp := orig.DeepCopy()
	cp.Tracks[0].Laps[0].Seq = 99
	cp.Tracks[0].Fastest.Seq = 99

	if orig.Tracks[0].Laps[0].Seq != 1 {
		t.Error("DeepCopy shares the laps slice")
	}
	if orig.Tracks[0].Fastest.Seq != 1 {
		t.Error("DeepCopy shares the fastest-lap pointer")
	}
}

func TestEventOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(models.Event{Type: models.EventLightsOut})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"type":"lights_out"}` {
		t.Errorf("wire = %s, want only the type field", data)
	}
}
