package tola

import (
	"testing"
	"time"
)

func TestDebouncerScenarioS4CreateModifyRemoveDiscards(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeCreated, now)
	d.AddEvent("p", ChangeModified, now)
	d.AddEvent("p", ChangeRemoved, now)

	later := now.Add((DebounceMs + 50) * time.Millisecond)
	got := d.TakeIfReady(later)
	if got != nil {
		t.Fatalf("expected no drain (appeared+vanished is a no-op), got %v", got)
	}
}

func TestDebouncerScenarioS4ModifyRemoveYieldsRemoved(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeModified, now)
	d.AddEvent("p", ChangeRemoved, now)

	later := now.Add((DebounceMs + 50) * time.Millisecond)
	got := d.TakeIfReady(later)
	if got == nil || got["p"] != ChangeRemoved {
		t.Fatalf("expected {p: Removed}, got %v", got)
	}
}

func TestDebouncerScenarioS4RemoveCreateYieldsCreated(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeRemoved, now)
	d.AddEvent("p", ChangeCreated, now)

	later := now.Add((DebounceMs + 50) * time.Millisecond)
	got := d.TakeIfReady(later)
	if got == nil || got["p"] != ChangeCreated {
		t.Fatalf("expected {p: Created}, got %v", got)
	}
}

func TestDebouncerNotReadyBeforeWindow(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeModified, now)
	if got := d.TakeIfReady(now.Add(10 * time.Millisecond)); got != nil {
		t.Fatalf("expected not ready before debounce window elapses, got %v", got)
	}
}

func TestDebouncerCooldownBlocksImmediateRedrain(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeModified, now)
	drainTime := now.Add((DebounceMs + 10) * time.Millisecond)
	if got := d.TakeIfReady(drainTime); got == nil {
		t.Fatal("expected first drain to succeed")
	}

	d.AddEvent("q", ChangeModified, drainTime.Add(time.Millisecond))
	tooSoon := drainTime.Add((RebuildCooldownMs - 100) * time.Millisecond)
	if got := d.TakeIfReady(tooSoon); got != nil {
		t.Fatalf("expected cooldown to block drain, got %v", got)
	}
}

func TestIsTempFile(t *testing.T) {
	temp := []string{"foo~", ".hidden", "a.bak", "a.swp", "a.tmp", "dir/.git"}
	for _, p := range temp {
		if !IsTempFile(p) {
			t.Errorf("expected %q to be a temp file", p)
		}
	}
	real := []string{"content/hello.typ", "assets/style.css"}
	for _, p := range real {
		if IsTempFile(p) {
			t.Errorf("expected %q to NOT be a temp file", p)
		}
	}
}

func TestSleepDurationClampedAtLeastOneMs(t *testing.T) {
	d := NewDebouncer()
	now := time.Now()
	d.AddEvent("p", ChangeModified, now)
	dur := d.SleepDuration(now.Add(DebounceMs * time.Millisecond * 10))
	if dur < time.Millisecond {
		t.Fatalf("expected sleep duration clamped to >=1ms, got %v", dur)
	}
}
