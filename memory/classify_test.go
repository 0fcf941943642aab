package memory_test

import (
	"testing"
	"time"

	"github.com/engramlabs/engram-go/memory"
)

func TestClassifyDecay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want memory.DecayClass
	}{
		{"identity is permanent", "My name is Ada Lovelace", memory.DecayPermanent},
		{"email is permanent", "Her email is ada@example.com", memory.DecayPermanent},
		{"convention is permanent", "Always run the linter before pushing", memory.DecayPermanent},
		{"decision is permanent", "We decided to use Postgres", memory.DecayPermanent},
		{"preference is stable", "I prefer tabs over spaces", memory.DecayStable},
		{"framework is stable", "The frontend framework is Svelte", memory.DecayStable},
		{"task is active", "Currently working on the billing migration", memory.DecayActive},
		{"sprint is active", "The sprint goal is checkout latency", memory.DecayActive},
		{"debugging is session", "Debugging the cache layer right now", memory.DecaySession},
		{"temporary is session", "Temporarily pointing at the staging API", memory.DecaySession},
		{"checkpoint is checkpoint", "Checkpoint before deploying to prod", memory.DecayCheckpoint},
		{"no marker defaults to stable", "The sky over the harbor was grey", memory.DecayStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := memory.ClassifyDecay("", "", "", tt.text)
			if got != tt.want {
				t.Errorf("ClassifyDecay(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyDecay_FirstMatchWins(t *testing.T) {
	// "always" (permanent) and "debugging" (session) both match; the
	// permanent rule comes first.
	got := memory.ClassifyDecay("", "", "", "always enable verbose logging when debugging")
	if got != memory.DecayPermanent {
		t.Errorf("expected permanent to outrank session, got %s", got)
	}
}

func TestClassifyDecay_UsesTripleParts(t *testing.T) {
	// The marker appears only in the attribute, not the text.
	got := memory.ClassifyDecay("alice", "birthday", "March 3rd", "a date worth keeping")
	if got != memory.DecayPermanent {
		t.Errorf("expected permanent from attribute marker, got %s", got)
	}
}

func TestTTL(t *testing.T) {
	tests := []struct {
		class  memory.DecayClass
		want   time.Duration
		wantOK bool
	}{
		{memory.DecayPermanent, 0, false},
		{memory.DecayStable, 90 * 24 * time.Hour, true},
		{memory.DecayActive, 14 * 24 * time.Hour, true},
		{memory.DecaySession, 24 * time.Hour, true},
		{memory.DecayCheckpoint, 4 * time.Hour, true},
	}
	for _, tt := range tests {
		got, ok := memory.TTL(tt.class)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("TTL(%s) = (%v, %v), want (%v, %v)", tt.class, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRenewable(t *testing.T) {
	renewable := []memory.DecayClass{memory.DecayStable, memory.DecayActive}
	for _, class := range renewable {
		if !memory.Renewable(class) {
			t.Errorf("expected %s to be renewable", class)
		}
	}
	fixed := []memory.DecayClass{memory.DecayPermanent, memory.DecaySession, memory.DecayCheckpoint}
	for _, class := range fixed {
		if memory.Renewable(class) {
			t.Errorf("expected %s not to be renewable", class)
		}
	}
}
