package forumapi

import "testing"

func TestAuthorName(t *testing.T) {
	cases := []struct {
		name   string
		author any
		want   string
	}{
		{"bare string", "alice", "alice"},
		{"nested object", map[string]any{"name": "bob"}, "bob"},
		{"nested object missing name", map[string]any{"id": "123"}, ""},
		{"unexpected type", 42, ""},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AuthorName(tc.author); got != tc.want {
				t.Errorf("AuthorName(%#v) = %q, want %q", tc.author, got, tc.want)
			}
		})
	}
}
