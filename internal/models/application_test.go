package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{ApplicationStatusWaiting, ApplicationStatusApproved, true},
		{ApplicationStatusApproved, ApplicationStatusWorkInProgress, true},
		{ApplicationStatusWorkInProgress, ApplicationStatusSubmittedScript, true},
		{ApplicationStatusSubmittedScript, ApplicationStatusScriptApproved, true},
		{ApplicationStatusScriptApproved, ApplicationStatusSubmittedDraft, true},
		{ApplicationStatusSubmittedDraft, ApplicationStatusDraftApproved, true},
		{ApplicationStatusDraftApproved, ApplicationStatusSubmittedFinal, true},
		{ApplicationStatusSubmittedFinal, ApplicationStatusFinalApproved, true},
		{ApplicationStatusFinalApproved, ApplicationStatusSubmittedInsight, true},
		{ApplicationStatusSubmittedInsight, ApplicationStatusCompleted, true},
		{ApplicationStatusCompleted, ApplicationStatusPaymentTransferred, true},
		{ApplicationStatusReadyToPay, ApplicationStatusPaymentTransferred, true},

		// Revision loops
		{ApplicationStatusSubmittedScript, ApplicationStatusReviseScript, true},
		{ApplicationStatusReviseScript, ApplicationStatusSubmittedScript, true},
		{ApplicationStatusSubmittedDraft, ApplicationStatusReviseDraft, true},
		{ApplicationStatusReviseDraft, ApplicationStatusSubmittedDraft, true},
		{ApplicationStatusSubmittedFinal, ApplicationStatusReviseFinal, true},
		{ApplicationStatusReviseFinal, ApplicationStatusSubmittedFinal, true},
		{ApplicationStatusSubmittedInsight, ApplicationStatusReviseInsight, true},
		{ApplicationStatusReviseInsight, ApplicationStatusSubmittedInsight, true},

		// Invalid transitions
		{ApplicationStatusWaiting, ApplicationStatusSubmittedScript, false},
		{ApplicationStatusApproved, ApplicationStatusSubmittedDraft, false},
		{ApplicationStatusFinalApproved, ApplicationStatusCompleted, false},
		{ApplicationStatusSubmittedScript, ApplicationStatusSubmittedScript, false},
		{ApplicationStatusRejected, ApplicationStatusApproved, false},
		{ApplicationStatusPaymentTransferred, ApplicationStatusCompleted, false},
		{ApplicationStatusWorkInProgress, ApplicationStatusPaymentTransferred, false},
		{"nonexistent", ApplicationStatusApproved, false},
		{ApplicationStatusWaiting, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	for _, status := range AllApplicationStatuses {
		if _, ok := ValidApplicationTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidApplicationTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{ApplicationStatusRejected, ApplicationStatusPaymentTransferred}
	for _, status := range terminal {
		transitions := ValidApplicationTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestStageRulesAgreeWithTransitions(t *testing.T) {
	for stage, rule := range StageRules {
		for _, from := range rule.SubmitFrom {
			if !IsValidTransition(from, rule.Submitted) {
				t.Errorf("%s: submit %q -> %q missing from transition map", stage, from, rule.Submitted)
			}
		}
		if !IsValidTransition(rule.Submitted, rule.Approved) {
			t.Errorf("%s: approve %q -> %q missing from transition map", stage, rule.Submitted, rule.Approved)
		}
		if !IsValidTransition(rule.Submitted, rule.Revise) {
			t.Errorf("%s: revise %q -> %q missing from transition map", stage, rule.Submitted, rule.Revise)
		}
	}
}

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		stage    Stage
		status   string
		expected bool
	}{
		{StageScript, ApplicationStatusApproved, true},
		{StageScript, ApplicationStatusWorkInProgress, true},
		{StageScript, ApplicationStatusReviseScript, true},
		{StageScript, ApplicationStatusSubmittedScript, false},
		{StageScript, ApplicationStatusWaiting, false},
		{StageDraft, ApplicationStatusScriptApproved, true},
		{StageDraft, ApplicationStatusReviseDraft, true},
		{StageDraft, ApplicationStatusApproved, false},
		{StageFinal, ApplicationStatusDraftApproved, true},
		{StageFinal, ApplicationStatusReviseFinal, true},
		{StageFinal, ApplicationStatusScriptApproved, false},
		{StageInsight, ApplicationStatusFinalApproved, true},
		{StageInsight, ApplicationStatusReviseInsight, true},
		{StageInsight, ApplicationStatusCompleted, false},
		{Stage("brief"), ApplicationStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage)+"/"+tt.status, func(t *testing.T) {
			if got := CanSubmit(tt.stage, tt.status); got != tt.expected {
				t.Errorf("CanSubmit(%q, %q) = %v, want %v", tt.stage, tt.status, got, tt.expected)
			}
		})
	}
}

func TestCurrentStage(t *testing.T) {
	tests := map[string]string{
		ApplicationStatusWaiting:            "brief",
		ApplicationStatusWorkInProgress:     "brief",
		ApplicationStatusReviseScript:       "script",
		ApplicationStatusScriptApproved:     "draft",
		ApplicationStatusSubmittedFinal:     "final",
		ApplicationStatusFinalApproved:      "insight",
		ApplicationStatusCompleted:          "payment",
		ApplicationStatusPaymentTransferred: "payment",
		ApplicationStatusRejected:           "",
	}
	for status, want := range tests {
		app := &Application{Status: status}
		if got := app.CurrentStage(); got != want {
			t.Errorf("CurrentStage(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestWorkingAndPendingReviewAreDisjoint(t *testing.T) {
	for _, status := range AllApplicationStatuses {
		app := &Application{Status: status}
		if app.IsWorking() && app.IsPendingReview() {
			t.Errorf("status %q is both working and pending review", status)
		}
	}
}
