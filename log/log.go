// Package log provides structured diagnostic logging with filesystem-based persistence.
package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// enabled indicates the persistent logging state for the active application instance.
var enabled bool

// Setup initializes the log file, formatter and level from the global configuration.
// If logging is disabled, every emission below is silently discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	return nil
}

// Entry is a field-scoped logger. The zero value is usable and discards everything
// while logging is disabled.
type Entry struct {
	fields logrus.Fields
}

// With returns an Entry carrying the given key/value fields.
func With(fields map[string]any) Entry {
	return Entry{fields: fields}
}

// Episode is shorthand for an Entry scoped to one episode number.
func Episode(n int) Entry {
	return With(map[string]any{"episode": n})
}

func (e Entry) entry() *logrus.Entry {
	return logrus.WithFields(e.fields)
}

func (e Entry) log(level logrus.Level, args ...any) {
	if enabled {
		e.entry().Log(level, args...)
	}
}

func (e Entry) logf(level logrus.Level, format string, args ...any) {
	if enabled {
		e.entry().Logf(level, format, args...)
	}
}

func (e Entry) Debugf(format string, args ...any) { e.logf(logrus.DebugLevel, format, args...) }
func (e Entry) Infof(format string, args ...any)  { e.logf(logrus.InfoLevel, format, args...) }
func (e Entry) Warnf(format string, args ...any)  { e.logf(logrus.WarnLevel, format, args...) }
func (e Entry) Errorf(format string, args ...any) { e.logf(logrus.ErrorLevel, format, args...) }

// The package level functions log without fields.

func Error(args ...any)                 { Entry{}.log(logrus.ErrorLevel, args...) }
func Errorf(format string, args ...any) { Entry{}.Errorf(format, args...) }
func Warn(args ...any)                  { Entry{}.log(logrus.WarnLevel, args...) }
func Warnf(format string, args ...any)  { Entry{}.Warnf(format, args...) }
func Info(args ...any)                  { Entry{}.log(logrus.InfoLevel, args...) }
func Infof(format string, args ...any)  { Entry{}.Infof(format, args...) }
func Debugf(format string, args ...any) { Entry{}.Debugf(format, args...) }
func Tracef(format string, args ...any) { Entry{}.logf(logrus.TraceLevel, format, args...) }
