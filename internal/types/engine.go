package types

// EngineState is the scheduler's lifecycle state.
type EngineState string

const (
	// EngineStateInitializing is the state before collaborators are wired
	EngineStateInitializing EngineState = "INITIALIZING"
	// EngineStateReady means collaborators are wired and the loop can start
	EngineStateReady EngineState = "READY"
	// EngineStateRunning means the poll loop is active
	EngineStateRunning EngineState = "RUNNING"
	// EngineStateStopped means the loop exited and will not resume
	EngineStateStopped EngineState = "STOPPED"
)

// ExecutionMode distinguishes live order placement from the simulated ledger.
type ExecutionMode string

const (
	// ExecutionModeLive submits orders to the real broker
	ExecutionModeLive ExecutionMode = "LIVE"
	// ExecutionModeDegraded simulates fills against an in-memory ledger
	// because the order-placement capability is unavailable
	ExecutionModeDegraded ExecutionMode = "DEGRADED"
)
