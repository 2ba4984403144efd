package domain

import "testing"

func TestValidateSlug(t *testing.T) {
	valid := []string{"harbor-diner", "cafe-42"}
	for _, s := range valid {
		if err := ValidateSlug(s); err != nil {
			t.Fatalf("expected %q valid, got %v", s, err)
		}
	}
	invalid := []string{"", "Harbor Diner", "../etc", "-leading"}
	for _, s := range invalid {
		if err := ValidateSlug(s); err == nil {
			t.Fatalf("expected %q invalid", s)
		}
	}
}

func TestCanTransitionOnlyForward(t *testing.T) {
	if !CanTransition(StateDraft, StatePreviewing) || !CanTransition(StateDraft, StatePaid) || !CanTransition(StatePreviewing, StatePaid) {
		t.Fatalf("expected forward transitions to be allowed")
	}
	for _, to := range []State{StateDraft, StatePreviewing, StatePaid} {
		if CanTransition(StatePaid, to) {
			t.Fatalf("paid must be terminal, allowed -> %s", to)
		}
	}
	if CanTransition(StatePreviewing, StateDraft) {
		t.Fatalf("previewing must not return to draft")
	}
}

func TestSlugFor(t *testing.T) {
	if got := SlugFor("Harbor Diner"); got != "harbor-diner" {
		t.Fatalf("unexpected slug %q", got)
	}
}
