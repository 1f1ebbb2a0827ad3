// Package audit records every console command executed against a topology.
package audit

import (
	"fmt"
	"time"
)

// Event is one executed console command.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Topology  string        `json:"topology,omitempty"`
	Device    string        `json:"device"`
	Command   string        `json:"command"`
	View      string        `json:"view"`              // view the command ran in
	Backend   string        `json:"backend,omitempty"` // "native" or "interp"
	Accepted  bool          `json:"accepted"`
	Output    []string      `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Source    Source        `json:"source,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
}

// Source is the surface a command arrived on.
type Source string

const (
	SourceConsole Source = "console"
	SourceExec    Source = "exec"
	SourceSSH     Source = "ssh"
	SourceHTTP    Source = "http"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device       string
	User         string
	Command      string // prefix match
	Backend      string
	StartTime    time.Time
	EndTime      time.Time
	AcceptedOnly bool
	RejectedOnly bool
	Limit        int
	Offset       int
}

// NewEvent creates a new audit event
func NewEvent(user, device, command string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Command:   command,
	}
}

// WithTopology sets the topology name
func (e *Event) WithTopology(name string) *Event {
	e.Topology = name
	return e
}

// WithView sets the view the command ran in
func (e *Event) WithView(view string) *Event {
	e.View = view
	return e
}

// WithBackend sets the backend that executed the command
func (e *Event) WithBackend(backend string) *Event {
	e.Backend = backend
	return e
}

// WithOutput sets the console output of the command
func (e *Event) WithOutput(lines []string) *Event {
	e.Output = lines
	return e
}

// WithAccepted records whether the device accepted the command
func (e *Event) WithAccepted(accepted bool) *Event {
	e.Accepted = accepted
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Accepted = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the execution duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithSource sets the surface and session the command came from
func (e *Event) WithSource(src Source, session string) *Event {
	e.Source = src
	e.SessionID = session
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
