package ir

// Version constants for the term model and engine.
const (
	// IRVersion is the term model version recorded in the firing journal.
	IRVersion = "1"

	// EngineVersion is the CHR engine version.
	EngineVersion = "0.1.0"
)
