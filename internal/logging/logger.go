package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type SetupParams struct {
	Level  string
	JSON   bool
	Output io.Writer // Defaults to stdout
}

// Setup configures the global logrus logger.
func Setup(params SetupParams) {
	if params.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.SetLevel(GetLevel(params.Level))

	if params.Output == nil {
		params.Output = os.Stdout
	}
	logrus.SetOutput(params.Output)
}

// GetLevel maps a config string to a logrus level, falling back to info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
