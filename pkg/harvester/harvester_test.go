package harvester

import (
	"testing"

	"github.com/wisbric/scoutwell/pkg/credential"
	"github.com/wisbric/scoutwell/pkg/forumapi"
)

func TestNew_MaxRetriesMatchesCredentialCount(t *testing.T) {
	creds := credential.New(nil, []credential.Credential{{ClientID: "a"}, {ClientID: "b"}, {ClientID: "c"}})
	h := New(nil, creds, nil, nil)

	if h.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", h.maxRetries)
	}
}

func TestNew_MaxRetriesZeroWithNoCredentials(t *testing.T) {
	creds := credential.New(nil, nil)
	h := New(nil, creds, nil, nil)

	if h.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", h.maxRetries)
	}
}

func TestIsRateLimited(t *testing.T) {
	rlErr := &forumapi.RateLimitedError{}
	if _, ok := isRateLimited(rlErr); !ok {
		t.Error("expected *forumapi.RateLimitedError to be recognized")
	}

	other := &struct{ error }{}
	if _, ok := isRateLimited(other); ok {
		t.Error("expected a non-RateLimitedError to not be recognized")
	}
}
