package graph

import (
	"testing"
	"time"
)

func TestNewCheckpointID_Sortable(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Millisecond)

	id1 := NewCheckpointID(t1)
	id2 := NewCheckpointID(t2)

	if id1 >= id2 {
		t.Errorf("expected id for earlier time to sort first: %q, %q", id1, id2)
	}
}

func TestNewCheckpointID_UniqueUnderSameTimestamp(t *testing.T) {
	now := time.Now()
	id1 := NewCheckpointID(now)
	id2 := NewCheckpointID(now)
	if id1 == id2 {
		t.Error("expected distinct ids even under an identical timestamp")
	}
}

func TestCheckpointClone_IsIndependent(t *testing.T) {
	cp := emptyCheckpoint("cp-1")
	cp.ChannelValues["state"] = map[string]Value{"x": 1}
	cp.ChannelVersions["state"] = 1
	cp.seenFor("node-a")["state"] = 1

	clone := cp.clone()
	clone.ChannelValues["state"] = map[string]Value{"x": 2}
	clone.ChannelVersions["state"] = 2
	clone.seenFor("node-a")["state"] = 2

	if cp.ChannelVersions["state"] != 1 {
		t.Errorf("mutating clone's ChannelVersions affected the original: %v", cp.ChannelVersions["state"])
	}
	if cp.VersionsSeen["node-a"]["state"] != 1 {
		t.Errorf("mutating clone's VersionsSeen affected the original: %v", cp.VersionsSeen["node-a"]["state"])
	}
}

func TestSnapshotAndRestoreChannels_Roundtrip(t *testing.T) {
	specs := map[string]ChannelSpec{
		"state":   {Kind: KindLastValue},
		"scratch": {Kind: KindUntracked},
	}
	live := map[string]Channel{
		"state":   NewChannel(KindLastValue),
		"scratch": NewChannel(KindUntracked),
	}
	if _, err := live["state"].Update([]Value{"hello"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := live["scratch"].Update([]Value{"ignored"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cp, err := snapshotChannels("cp-2", "", emptyCheckpoint("cp-1"), live,
		map[string]ChannelVersion{"state": 1}, map[string]map[string]ChannelVersion{}, []string{"state"})
	if err != nil {
		t.Fatalf("snapshotChannels failed: %v", err)
	}
	if _, ok := cp.ChannelValues["scratch"]; ok {
		t.Error("expected Untracked channel to be absent from channel_values (invariant 5)")
	}
	if cp.ChannelValues["state"] != "hello" {
		t.Errorf("expected state = hello, got %v", cp.ChannelValues["state"])
	}

	restored, err := restoreChannels(cp, specs)
	if err != nil {
		t.Fatalf("restoreChannels failed: %v", err)
	}
	v, err := restored["state"].Get()
	if err != nil || v != "hello" {
		t.Errorf("restored state = %v, %v; want hello, nil", v, err)
	}
	if restored["scratch"].IsAvailable() {
		t.Error("expected restored Untracked channel to stay empty")
	}
}

func TestChannelVersion_Increment(t *testing.T) {
	v := Increment(NullVersion)
	if v <= NullVersion {
		t.Fatalf("expected Increment to strictly advance past NullVersion, got %v", v)
	}
	v2 := Increment(v)
	if v2 <= v {
		t.Fatalf("expected Increment to strictly advance, got %v then %v", v, v2)
	}
}
