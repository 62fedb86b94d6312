package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Logger is the interface for logging. Fatal variants are deliberately
// absent: no failure in this process is allowed to abort it.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
}

// Init configures the process-wide logger. Unknown levels fall back to info.
func Init(level string) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l, err := log.ParseLevel(level)
	if err != nil {
		l = log.InfoLevel
	}
	log.SetLevel(l)
}

func L() *log.Logger { return log.StandardLogger() }

// NewDefaultLogger creates a default logger
func NewDefaultLogger() Logger {
	return log.StandardLogger()
}
