package enrichedpost

import "testing"

func TestIsDerived(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"abc123", false},
		{"abc123-Derived-9f3e", true},
		{"", false},
		{"Derived-abc", false},
		{"abc-Derived-", true},
	}

	for _, c := range cases {
		if got := IsDerived(c.id); got != c.want {
			t.Errorf("IsDerived(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}
