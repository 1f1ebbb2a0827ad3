package cli

import (
	"reflect"
	"strings"
	"testing"
)

func TestTableTo(t *testing.T) {
	var b strings.Builder
	tbl := NewTableTo(&b, "VID", "STATUS")
	tbl.Row("1", "active")
	tbl.Row("100", "active")
	tbl.Flush()

	want := "VID  STATUS\n---  ------\n1    active\n100  active\n"
	if b.String() != want {
		t.Errorf("table output =\n%q\nwant\n%q", b.String(), want)
	}
}

func TestTableEmpty(t *testing.T) {
	var b strings.Builder
	NewTableTo(&b, "A", "B").Flush()
	if b.Len() != 0 {
		t.Errorf("empty table wrote %q", b.String())
	}
}

func TestTablePrefix(t *testing.T) {
	var b strings.Builder
	tbl := NewTableTo(&b, "A").WithPrefix("  ")
	tbl.Row("x")
	tbl.Flush()
	for _, line := range strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q missing prefix", line)
		}
	}
}

func TestLines(t *testing.T) {
	got := Lines([]string{"Peer", "AS", "State"}, [][]string{
		{"10.0.0.2", "65002", "Established"},
		{"10.0.0.10", "65010", "Idle"},
	})
	want := []string{
		"Peer       AS     State",
		"----       --     -----",
		"10.0.0.2   65002  Established",
		"10.0.0.10  65010  Idle",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if Lines([]string{"A"}, nil) != nil {
		t.Error("Lines() with no rows should be nil")
	}
}
