package graph

import "testing"

func TestChannelVersion_Less(t *testing.T) {
	if !NullVersion.Less(Increment(NullVersion)) {
		t.Error("expected NullVersion to precede its successor")
	}
	if Increment(NullVersion).Less(NullVersion) {
		t.Error("expected successor not to precede NullVersion")
	}
}

func TestMaxVersion(t *testing.T) {
	if got := maxVersion(nil); got != NullVersion {
		t.Errorf("maxVersion(nil) = %v, want NullVersion", got)
	}
	m := map[string]ChannelVersion{"a": 3, "b": 7, "c": 1}
	if got := maxVersion(m); got != 7 {
		t.Errorf("maxVersion = %v, want 7", got)
	}
}

func TestChannelVersion_String(t *testing.T) {
	if got := ChannelVersion(5).String(); got != "00000000000000000005" {
		t.Errorf("String() = %q", got)
	}
}
