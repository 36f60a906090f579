package stages

import "github.com/wisbric/scoutwell/pkg/rawpost"

func rawpostForTest() rawpost.RawPost {
	return rawpost.RawPost{ID: "post-1", Title: "Test title", Body: "Test body"}
}
