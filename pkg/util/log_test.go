package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()

	Infof("converged %d devices", 3)

	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Errorf("Expected JSON output starting with '{', got: %s", output)
	}
}

func TestWithCommand(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel("debug")

	WithCommand("r1", "display version").Debug("executing")

	got := buf.String()
	if !strings.Contains(got, "device=r1") {
		t.Errorf("log line missing device field: %s", got)
	}
	if !strings.Contains(got, `command="display version"`) {
		t.Errorf("log line missing command field: %s", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel("warn")

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	if buf.Len() != 0 {
		t.Errorf("debug/info should be filtered at warn level, got %q", buf.String())
	}

	Warnf("shown %d", 3)
	if !strings.Contains(buf.String(), "shown 3") {
		t.Errorf("warn output missing, got %q", buf.String())
	}
}

func TestScopedEntries(t *testing.T) {
	if WithDevice("r1").Data["device"] != "r1" {
		t.Error("WithDevice should set device field")
	}
	if WithTopology("lab").Data["topology"] != "lab" {
		t.Error("WithTopology should set topology field")
	}
	if WithComponent("router").Data["component"] != "router" {
		t.Error("WithComponent should set component field")
	}
	if WithField("k", 1).Data["k"] != 1 {
		t.Error("WithField should set field")
	}
}
