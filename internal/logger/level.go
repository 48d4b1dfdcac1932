package logger

import "strings"

// Level is an enumeration representing the supported log severity levels.
// The order matters: a LogSink backed by "logr" defaults InfoLevel as 0, so
// anything added before LevelInfo must keep that alignment in mind.
type Level int

const (
	// LevelOff suppresses logging.
	LevelOff Level = iota

	// LevelInfo enables logging of high-level, low-volume messages such as
	// a retry decision or an implicit session being ended.
	LevelInfo

	// LevelDebug enables logging of voluminous, per-attempt detail.
	LevelDebug
)

var levelLiteralMap = map[string]Level{
	"off":   LevelOff,
	"info":  LevelInfo,
	"debug": LevelDebug,
}

// ParseLevel returns the Level named by str, defaulting to LevelOff.
func ParseLevel(str string) Level {
	for literal, level := range levelLiteralMap {
		if strings.EqualFold(literal, str) {
			return level
		}
	}

	return LevelOff
}
