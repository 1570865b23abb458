package orchestrator

// Keys printed in CI output mode, one key=value per line.
const (
	OutputLatestVersion = "latest_version"
	OutputNewVersion    = "new_version"
	OutputUpdateType    = "update_type"
	OutputTransition    = "transition"
	OutputTag           = "tag"
	OutputSessionID     = "session_id"
)
