package models

// SolverDefinition describes an executable solver registered in the
// catalog. Catalog entries are loaded from TOML files in the solvers
// directory and validated before use.
type SolverDefinition struct {
	Name        string `toml:"name" json:"name" validate:"required"`
	BinaryPath  string `toml:"binary_path" json:"binary_path" validate:"required"`
	Protocol    string `toml:"protocol" json:"protocol" validate:"required,oneof=structured legacy"`
	Description string `toml:"description" json:"description,omitempty"`

	// DefaultMaxDurationHintHours seeds jobs that don't carry their own hint
	DefaultMaxDurationHintHours float64 `toml:"default_max_duration_hint_hours" json:"default_max_duration_hint_hours,omitempty" validate:"gte=0"`
}
