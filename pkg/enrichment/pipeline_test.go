package enrichment

import "testing"

func TestShouldStop_SpamStopsPipeline(t *testing.T) {
	p := &Pipeline{}
	state := &State{
		SpamResult:     &StageResult{Success: true, Data: SpamVerdict{IsSpam: true}},
		ValidityResult: &StageResult{Success: true, Data: ValidityVerdict{IsValid: true}},
	}
	if !p.shouldStop(state) {
		t.Error("shouldStop should be true when SpamCheck reports isSpam")
	}
}

func TestShouldStop_PIIStopsPipeline(t *testing.T) {
	p := &Pipeline{}
	state := &State{
		SpamResult:     &StageResult{Success: true, Data: SpamVerdict{HasPII: true}},
		ValidityResult: &StageResult{Success: true, Data: ValidityVerdict{IsValid: true}},
	}
	if !p.shouldStop(state) {
		t.Error("shouldStop should be true when SpamCheck reports hasPii")
	}
}

func TestShouldStop_InvalidStopsPipeline(t *testing.T) {
	p := &Pipeline{}
	state := &State{
		SpamResult:     &StageResult{Success: true, Data: SpamVerdict{}},
		ValidityResult: &StageResult{Success: true, Data: ValidityVerdict{IsValid: false}},
	}
	if !p.shouldStop(state) {
		t.Error("shouldStop should be true when ValidityCheck reports isValid=false")
	}
}

func TestShouldStop_CleanPostContinues(t *testing.T) {
	p := &Pipeline{}
	state := &State{
		SpamResult:     &StageResult{Success: true, Data: SpamVerdict{}},
		ValidityResult: &StageResult{Success: true, Data: ValidityVerdict{IsValid: true}},
	}
	if p.shouldStop(state) {
		t.Error("shouldStop should be false for a clean, valid post")
	}
}

func TestShouldStop_FailedValidityDefaultsToContinue(t *testing.T) {
	p := &Pipeline{}
	state := &State{
		SpamResult:     &StageResult{Success: true, Data: SpamVerdict{}},
		ValidityResult: &StageResult{Success: false, ErrorKind: "llm_error"},
	}
	if p.shouldStop(state) {
		t.Error("shouldStop should be false when ValidityCheck itself errored; an undefined verdict defaults to continue")
	}
}

func TestShouldStop_NilResultsDoNotPanic(t *testing.T) {
	p := &Pipeline{}
	state := &State{}
	if p.shouldStop(state) {
		t.Error("shouldStop on a fresh State should be false")
	}
}
