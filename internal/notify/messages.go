package notify

import (
	"fmt"

	"github.com/influencer-campaigns/backend/internal/models"
)

var statusMessages = map[string]string{
	models.ApplicationStatusApproved:           "Congratulations! Your application for %q has been approved. You can start working now.",
	models.ApplicationStatusRejected:           "Sorry, your application for %q was not selected. Please try another campaign.",
	models.ApplicationStatusScriptApproved:     "Your script for %q has been approved. Please submit your draft next.",
	models.ApplicationStatusDraftApproved:      "Your draft for %q has been approved. Please submit the final content.",
	models.ApplicationStatusReviseScript:       "Your script for %q needs changes. Please check the feedback and resubmit.",
	models.ApplicationStatusReviseDraft:        "Your draft for %q needs changes. Please check the feedback and resubmit.",
	models.ApplicationStatusReviseFinal:        "Your final content for %q needs changes. Please check the feedback and resubmit.",
	models.ApplicationStatusReviseInsight:      "Your insight report for %q needs changes. Please check the feedback and resubmit.",
	models.ApplicationStatusCompleted:          "Well done! You have completed %q. Your payment is on its way.",
	models.ApplicationStatusPaymentTransferred: "Payment for %q has been transferred to you. Thank you for working with us!",
}

// StatusMessage returns the participant-facing text for newStatus, or false
// when that status is not announced.
func StatusMessage(newStatus, campaignTitle string) (string, bool) {
	tmpl, ok := statusMessages[newStatus]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(tmpl, campaignTitle), true
}
