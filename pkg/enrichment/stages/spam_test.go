package stages

import "testing"

func TestContainsSpamIndicator(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Click here to win a prize!", true},
		{"We offer a guaranteed income stream", true},
		{"I'm having trouble configuring my build pipeline", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := containsSpamIndicator(tc.text); got != tc.want {
			t.Errorf("containsSpamIndicator(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestContainsPII(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"My SSN is 123-45-6789", true},
		{"Reach me at alice@example.com", true},
		{"Call me at (555) 123-4567", true},
		{"Just a normal post about Go generics", false},
	}
	for _, tc := range cases {
		if got := containsPII(tc.text); got != tc.want {
			t.Errorf("containsPII(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSpamCheck_NoLLMIsNeutral(t *testing.T) {
	s := NewSpamCheck(nil, nil)
	isSpam, hasPII, notes, tokens := s.callLLM(nil, "anything")
	if isSpam || hasPII || notes != "" || tokens != 0 {
		t.Errorf("callLLM with nil llm = (%v, %v, %q, %d), want all zero values", isSpam, hasPII, notes, tokens)
	}
}
