package constants

// RunStatus is the canonical status for one document extraction run.
type RunStatus string

// Stable values (progress sinks report these exact strings).
const (
	RunStatusQueued    RunStatus = "QUEUED"     // accepted, not started
	RunStatusRunning   RunStatus = "RUNNING"    // pages in flight
	RunStatusExtractOK RunStatus = "EXTRACT_OK" // all pages visited, results aggregated
	RunStatusSaveOK    RunStatus = "SAVE_OK"    // validated batch persisted
	RunStatusFailed    RunStatus = "FAILED"     // terminal failure (no forward progress)
)
