package ir

// Version constants for promotion records and the engine.
const (
	// SchemaVersion is the promotion record schema version.
	SchemaVersion = "1"

	// EngineVersion is the promotion engine version.
	EngineVersion = "0.1.0"
)
