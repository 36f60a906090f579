package stages

import "testing"

func TestValidityCheck_NoLLMDefaultsValid(t *testing.T) {
	v := NewValidityCheck(nil, nil)
	verdict, derived, tokens := v.callLLM(nil, rawpostForTest())
	if !verdict.IsValid {
		t.Error("callLLM with nil llm should default isValid=true")
	}
	if derived != nil {
		t.Errorf("derived = %v, want nil", derived)
	}
	if tokens != 0 {
		t.Errorf("tokens = %d, want 0", tokens)
	}
}
