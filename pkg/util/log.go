package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithDevice returns a logger scoped to one simulated device.
func WithDevice(deviceID string) *logrus.Entry {
	return Logger.WithField("device", deviceID)
}

// WithCommand returns a logger carrying the device and the command line being executed.
func WithCommand(deviceID, command string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"device":  deviceID,
		"command": command,
	})
}

// WithTopology returns a logger scoped to a topology.
func WithTopology(name string) *logrus.Entry {
	return Logger.WithField("topology", name)
}

// WithComponent returns a logger tagged with the emitting component
// (router, converge, statedb, ssh, api).
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}
