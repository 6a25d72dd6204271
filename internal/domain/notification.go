package domain

import "time"

// HolderID is the base58 address of an account holding the collection's xNFT.
// Duplicates are allowed and are resolved independently.
type HolderID string

// UserID identifies a user in the push notification system.
type UserID string

// Payload is the single aggregated push request of a run.
type Payload struct {
	Title      string
	Body       string
	Recipients []UserID
}

// DispatchOutcome reports what happened to a Payload.
// Skipped is set when there was nobody to notify and no request was made.
type DispatchOutcome struct {
	Sent       bool   `json:"sent"`
	Skipped    bool   `json:"skipped"`
	StatusCode int    `json:"status_code,omitempty"`
	Response   string `json:"response,omitempty"`
}

// Mode selects which pipeline the orchestrator runs.
type Mode string

const (
	ModeCollection Mode = "collection"
	ModeReplay     Mode = "replay"
	ModeApp        Mode = "app"
)

// RunState tracks the lifecycle of one run.
type RunState string

const (
	StateIdle              RunState = "idle"
	StateScanning          RunState = "scanning"
	StateResolving         RunState = "resolving"
	StateCaching           RunState = "caching"
	StateLoadingReplayList RunState = "loading_replay_list"
	StateNotifying         RunState = "notifying"
	StateDone              RunState = "done"
	StateFailed            RunState = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// RunReport summarises a finished run for the CLI.
type RunReport struct {
	RunID      string          `json:"run_id"`
	Mode       Mode            `json:"mode"`
	State      RunState        `json:"state"`
	Holders    int             `json:"holders"`
	Batches    int             `json:"batches"`
	Resolved   int             `json:"resolved"`
	Unresolved int             `json:"unresolved"`
	Recipients []UserID        `json:"recipients,omitempty"`
	Dispatch   DispatchOutcome `json:"dispatch"`
	Duration   time.Duration   `json:"duration"`
}
