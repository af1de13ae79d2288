package graph

import "testing"

func TestCommand_IsZero(t *testing.T) {
	var nilCmd *Command
	if !nilCmd.IsZero() {
		t.Error("expected nil *Command to be zero")
	}
	if !(&Command{}).IsZero() {
		t.Error("expected empty Command to be zero")
	}
	if (&Command{Update: map[string]Value{"x": 1}}).IsZero() {
		t.Error("expected Command with Update to be non-zero")
	}
	if (&Command{Resume: "v"}).IsZero() {
		t.Error("expected Command with Resume to be non-zero")
	}
	if (&Command{ResumeByID: map[string]Value{"i": "v"}}).IsZero() {
		t.Error("expected Command with ResumeByID to be non-zero")
	}
}

func TestGraphTarget_Defaults(t *testing.T) {
	var zero GraphTarget
	if !zero.IsCurrent() {
		t.Error("expected zero-value GraphTarget to be current")
	}
	if !GraphCurrent.IsCurrent() {
		t.Error("expected GraphCurrent.IsCurrent() to be true")
	}
	if !GraphParent.IsParent() {
		t.Error("expected GraphParent.IsParent() to be true")
	}
	named := GraphNamed("sub")
	name, ok := named.Named()
	if !ok || name != "sub" {
		t.Errorf("Named() = %v, %v; want sub, true", name, ok)
	}
	if _, ok := GraphCurrent.Named(); ok {
		t.Error("expected GraphCurrent.Named() to report false")
	}
}
