package models

// Event type discriminators, matching the dashboard wire format.
const (
	EventFullState    = "full_state"    // catch-up snapshot for a newly connected viewer
	EventReset        = "reset"         // race data cleared
	EventLight        = "light"         // one start light illuminated
	EventLightsOut    = "lights_out"    // start sequence complete, timing begins
	EventStartRace    = "start_race"    // phase entered running
	EventLapFinish    = "lap_finish"    // one lap recorded
	EventRaceFinished = "race_finished" // final results with fastest-lap markers
)

// Light is the state of one start light during the sequence. IDs are
// 1-based in illumination order.
type Light struct {
	ID    int    `json:"light_id"`
	State string `json:"state"` // "on" | "off"
}

// Event is one race update pushed to every connected viewer. Exactly one of
// the optional fields is set, depending on Type.
type Event struct {
	Type  string    `json:"type"`
	State *Snapshot `json:"state,omitempty"`
	Light *Light    `json:"light,omitempty"`
	Lap   *Lap      `json:"lap,omitempty"`
}
