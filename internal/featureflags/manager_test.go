package featureflags

import "testing"

func TestEnabled_OnOffValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=TRUE,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		if !m.Enabled(name, 1) {
			t.Fatalf("expected %s to be enabled", name)
		}
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		if m.Enabled(name, 1) {
			t.Fatalf("expected %s to be disabled", name)
		}
	}
}

func TestEnabled_Rollout(t *testing.T) {
	m := NewManager("all=100%,none=0%,half=50%,over=250%")

	if !m.Enabled("all", 0) {
		t.Fatal("full rollout should not need a user")
	}
	if !m.Enabled("over", 7) {
		t.Fatal("rollout above 100% should clamp to enabled")
	}
	if m.Enabled("none", 7) {
		t.Fatal("empty rollout should be disabled")
	}
	if m.Enabled("half", 0) {
		t.Fatal("partial rollout requires a user")
	}

	first := m.Enabled("half", 99)
	for i := 0; i < 3; i++ {
		if m.Enabled("half", 99) != first {
			t.Fatal("rollout must be stable per user")
		}
	}

	enabled := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if m.Enabled("half", uid) {
			enabled++
		}
	}
	if enabled < 350 || enabled > 650 {
		t.Fatalf("50%% rollout enabled %d of 1000 users", enabled)
	}
}

func TestNewManager_SkipsMalformedPairs(t *testing.T) {
	m := NewManager(" junk ,x=on, Y = 20% ,z=maybe,=on,w=,p=abc% ")

	names := m.Names()
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("unexpected names: %v", names)
	}
	if got := m.Raw()["y"]; got != "20%" {
		t.Fatalf("expected raw value 20%%, got %q", got)
	}

	snap := m.Snapshot(5)
	if !snap["x"] {
		t.Fatal("snapshot should report x enabled")
	}
	if _, ok := snap["z"]; ok {
		t.Fatal("invalid values must not appear in the snapshot")
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(HomepageRecentPosts, 1) {
		t.Fatal("nil manager must report every flag disabled")
	}
}
