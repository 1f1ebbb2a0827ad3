package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReferenceError(t *testing.T) {
	err := NewReferenceError("cable", "r1:GE0/0/9", "no such port")

	msg := err.Error()
	if !strings.Contains(msg, "r1:GE0/0/9") {
		t.Errorf("Error message should contain reference: %s", msg)
	}
	if !strings.Contains(msg, "no such port") {
		t.Errorf("Error message should contain reason: %s", msg)
	}
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("ReferenceError should unwrap to ErrInvalidReference")
	}

	wrapped := fmt.Errorf("converge: %w", err)
	var re *ReferenceError
	if !errors.As(wrapped, &re) || re.Kind != "cable" {
		t.Errorf("errors.As failed on wrapped ReferenceError")
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("device id is required")
		if !strings.Contains(err.Error(), "device id is required") {
			t.Errorf("Error message should contain the error: %s", err.Error())
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("first", "second")
		msg := err.Error()
		if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
			t.Errorf("Error message should list every error: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	vb := &ValidationBuilder{}
	vb.Add(true, "never added").Add(false, "hostname missing")
	vb.AddErrorf("cable %d: bad endpoint", 3)

	if !vb.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	err := vb.Build()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Build() = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(ve.Errors))
	}

	empty := &ValidationBuilder{}
	if empty.Build() != nil {
		t.Error("Build() on empty builder should return nil")
	}
}

func TestLockedError(t *testing.T) {
	err := &LockedError{Topology: "lab1", Holder: "host-a:123"}
	if !errors.Is(err, ErrTopologyLocked) {
		t.Error("LockedError should unwrap to ErrTopologyLocked")
	}
	if !strings.Contains(err.Error(), "host-a:123") {
		t.Errorf("Error message should name the holder: %s", err.Error())
	}
}
