package models

// RunLogEntry is one append-only row of the Logs sheet. Scope is the
// cluster name for cluster-level events or a run-wide label otherwise.
type RunLogEntry struct {
	Timestamp string
	Action    string
	Scope     string
	Details   string
}

// Row renders the entry as a Logs sheet row.
func (e RunLogEntry) Row() []string {
	return []string{e.Timestamp, e.Action, e.Scope, e.Details}
}

// LogsHeader returns the Logs sheet header row.
func LogsHeader() []string {
	return []string{"timestamp", "action", "scope", "details"}
}
