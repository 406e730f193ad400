package intake

import (
	"fmt"
	"strings"

	"github.com/tbxark/civicdesk/registry"
)

const commitFailedMessage = "Sorry, there was an error saving your application. Please try again."

// DefaultKindPrompt lists kinds as a menu.
func DefaultKindPrompt(kinds []registry.Kind) string {
	var sb strings.Builder
	sb.WriteString("Welcome! Please specify which certificate you'd like to apply for:")
	for _, k := range kinds {
		sb.WriteString("\n- ")
		sb.WriteString(string(k))
	}
	return sb.String()
}

func introMessage(kind registry.Kind) string {
	if kind.IsCertificate() {
		return fmt.Sprintf("I'll help you apply for a %s.", kind)
	}
	return "I'll help you file a complaint."
}

func confirmationMessage(kind registry.Kind, summary string, drafted bool) string {
	if drafted {
		return summary + "\n\nPlease reply with 'confirm' to submit or 'edit' to make changes."
	}
	return fmt.Sprintf("Please confirm the following details for your %s:\n\n%s\n\nPlease reply with 'confirm' to save these details or 'edit' to make changes.", kind, summary)
}

func completeMessage(sub *CommittedSubmission) string {
	if sub.Kind.IsCertificate() {
		return fmt.Sprintf("Thank you! Your application has been saved. Your application ID is: %s", sub.ID)
	}
	return fmt.Sprintf("Your complaint has been submitted successfully with ID %s.", sub.ID)
}

func rejectedMessage(reason, question string) string {
	return fmt.Sprintf("Sorry, I couldn't accept that: %s. %s", reason, question)
}
