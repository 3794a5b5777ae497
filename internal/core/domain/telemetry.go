package domain

// UnitStatus represents the lifecycle state of a compile unit.
type UnitStatus string

const (
	// UnitStatusPending indicates the unit is waiting for its dependencies.
	UnitStatusPending UnitStatus = "pending"
	// UnitStatusRunning indicates the unit is being compiled.
	UnitStatusRunning UnitStatus = "running"
	// UnitStatusCompleted indicates the unit compiled successfully.
	UnitStatusCompleted UnitStatus = "completed"
	// UnitStatusFailed indicates the unit failed to compile.
	UnitStatusFailed UnitStatus = "failed"
	// UnitStatusFresh indicates the unit was skipped because its fingerprint matched.
	UnitStatusFresh UnitStatus = "fresh"
)

// IsTerminal reports whether the status is final.
func (s UnitStatus) IsTerminal() bool {
	switch s {
	case UnitStatusCompleted, UnitStatusFailed, UnitStatusFresh:
		return true
	default:
		return false
	}
}

// Verbosity controls how much forge prints.
type Verbosity int

const (
	// VerbosityNormal prints status lines and warnings.
	VerbosityNormal Verbosity = iota
	// VerbosityVerbose also prints debug lines such as command invocations.
	VerbosityVerbose
	// VerbosityQuiet prints only warnings and errors.
	VerbosityQuiet
)

// ColorChoice controls terminal colouring.
type ColorChoice string

const (
	// ColorAuto colours output when writing to a terminal.
	ColorAuto ColorChoice = "auto"
	// ColorAlways always colours output.
	ColorAlways ColorChoice = "always"
	// ColorNever never colours output.
	ColorNever ColorChoice = "never"
)

// ParseColorChoice validates a --color value. The empty string means auto.
func ParseColorChoice(s string) (ColorChoice, bool) {
	switch ColorChoice(s) {
	case "", ColorAuto:
		return ColorAuto, true
	case ColorAlways:
		return ColorAlways, true
	case ColorNever:
		return ColorNever, true
	default:
		return "", false
	}
}
