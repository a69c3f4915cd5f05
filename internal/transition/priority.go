package transition

import "github.com/mesh-intelligence/taskboard/pkg/types"

// Level is the priority band a task falls into.
type Level int

// Priority bands, lowest first.
const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// Classify maps a numeric priority to its band.
func Classify(priority int) Level {
	switch {
	case priority >= 100:
		return LevelCritical
	case priority >= types.UrgentThreshold:
		return LevelHigh
	case priority >= 50:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Label is the human-readable band name.
func (l Level) Label() string {
	switch l {
	case LevelCritical:
		return "Critical"
	case LevelHigh:
		return "High"
	case LevelMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Class is the style class used when rendering the band.
func (l Level) Class() string {
	switch l {
	case LevelCritical:
		return "priority-critical"
	case LevelHigh:
		return "priority-high"
	case LevelMedium:
		return "priority-medium"
	default:
		return "priority-low"
	}
}

func (l Level) String() string { return l.Label() }
