package rawpost

import "testing"

func TestRawPost_Valid(t *testing.T) {
	cases := []struct {
		name string
		post RawPost
		want bool
	}{
		{"all fields present", RawPost{ID: "1", Title: "t", Body: "b"}, true},
		{"missing id", RawPost{Title: "t", Body: "b"}, false},
		{"missing title", RawPost{ID: "1", Body: "b"}, false},
		{"missing body", RawPost{ID: "1", Title: "t"}, false},
		{"zero value", RawPost{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.post.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}
