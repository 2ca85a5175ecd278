package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// logrus reserves its two lowest levels for panic and fatal, which are never used here.
const shiftLogrusLevel = 2

// These are the different logging levels.
const (
	// ErrorLevel level. Used for errors that should definitely be noted.
	ErrorLevel Level = iota
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel
	// InfoLevel level. General operational entries about what's going on inside the application.
	InfoLevel
	// DebugLevel level. Usually only enabled when debugging. Very verbose logging.
	DebugLevel
	// TraceLevel level. Designates finer-grained informational events than the Debug.
	TraceLevel
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = InfoLevel

// AllLevels exposes all logging levels
var AllLevels = Levels{
	ErrorLevel,
	WarnLevel,
	InfoLevel,
	DebugLevel,
	TraceLevel,
}

var levelNames = map[Level]string{
	ErrorLevel: "error",
	WarnLevel:  "warn",
	InfoLevel:  "info",
	DebugLevel: "debug",
	TraceLevel: "trace",
}

// Level type
type Level uint32

// ParseLevel takes a string and returns the Level constant.
func ParseLevel(str string) (Level, error) {
	for level, name := range levelNames {
		if strings.EqualFold(name, str) {
			return level, nil
		}
	}

	return Level(0), fmt.Errorf("invalid level %q, supported levels: %s", str, AllLevels)
}

// FromLogrusLevel converts a logrus level to Level.
func FromLogrusLevel(lvl logrus.Level) Level {
	if lvl < shiftLogrusLevel {
		return ErrorLevel
	}

	return Level(lvl - shiftLogrusLevel)
}

// String implements fmt.Stringer.
func (level Level) String() string {
	return levelNames[level]
}

// ToLogrusLevel converts Level to logrus.Level.
func (level Level) ToLogrusLevel() logrus.Level {
	return logrus.Level(level + shiftLogrusLevel)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (level *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}

	*level = lvl

	return nil
}

// MarshalText implements encoding.MarshalText.
func (level Level) MarshalText() ([]byte, error) {
	if name := level.String(); name != "" {
		return []byte(name), nil
	}

	return nil, fmt.Errorf("invalid level: %d", level)
}

// Levels is a list of levels.
type Levels []Level

// Names returns the names of the levels.
func (levels Levels) Names() []string {
	strs := make([]string, len(levels))

	for i, level := range levels {
		strs[i] = level.String()
	}

	return strs
}

// String implements fmt.Stringer.
func (levels Levels) String() string {
	return strings.Join(levels.Names(), ", ")
}
