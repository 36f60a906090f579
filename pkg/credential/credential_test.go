package credential

import "testing"

func TestCooldownKey(t *testing.T) {
	if got := cooldownKey(3); got != "cooldown:3" {
		t.Errorf("cooldownKey(3) = %q, want %q", got, "cooldown:3")
	}
}

func TestPool_Len(t *testing.T) {
	p := New(nil, []Credential{{ClientID: "a"}, {ClientID: "b"}, {ClientID: "c"}})
	if got := p.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestPool_Len_Empty(t *testing.T) {
	p := New(nil, nil)
	if got := p.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
