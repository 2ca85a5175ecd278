package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format names a built-in log output format.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
	// BareFormat prints the message only, used for human-facing CLI output.
	BareFormat Format = "bare"
)

// ParseFormat validates a format name.
func ParseFormat(str string) (Format, error) {
	switch format := Format(strings.ToLower(str)); format {
	case TextFormat, JSONFormat, BareFormat:
		return format, nil
	}

	return "", fmt.Errorf("invalid log format %q, supported formats: %s, %s, %s", str, TextFormat, JSONFormat, BareFormat)
}

// NewFormatter returns the logrus formatter for the given format.
func NewFormatter(format Format, disableColors bool) logrus.Formatter {
	switch format {
	case JSONFormat:
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: FieldKeyMsg,
			},
		}
	case BareFormat:
		return &bareFormatter{}
	case TextFormat:
	}

	return &logrus.TextFormatter{
		DisableColors:    disableColors,
		FullTimestamp:    true,
		DisableSorting:   false,
		QuoteEmptyFields: true,
	}
}

type bareFormatter struct{}

func (*bareFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString(entry.Message)

	for _, key := range Fields(entry.Data).Keys() {
		fmt.Fprintf(&sb, " %s=%v", key, entry.Data[key])
	}

	sb.WriteByte('\n')

	return []byte(sb.String()), nil
}
