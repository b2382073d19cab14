package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/snakeaid/backend/internal/analysis/triage"
)

// PromptTemplate holds the fixed parts of the responder system prompt.
type PromptTemplate struct {
	Role     string
	Rules    []string
	Template string
}

// DefaultPromptTemplate returns the snake bite first aid instructions.
func DefaultPromptTemplate() PromptTemplate {
	return PromptTemplate{
		Role: "You are a snake bite emergency response system. Your role is to provide immediate, clear, and safe guidance.",
		Rules: []string{
			"Always prioritize getting medical help immediately",
			"Never attempt to identify specific snake species",
			"Focus on immediate safety and first aid",
			"Keep responses clear and concise",
			"Include emergency number 999",
			"Adapt the response based on whether it's about the person messaging or someone else",
		},
		Template: "Move [yourself/them] away from the snake.\n" +
			"Remove tight items like rings/bracelets. Keep [them/yourself] calm and still.\n" +
			"Keep the affected limb still and straight. Don't tie anything around it or try to cut/suck the bite.\n" +
			"If transport is far, make a stretcher using available materials. Get to a health facility immediately.\n" +
			"If [they feel/you feel] dizzy or vomit, lay on the left side. Watch breathing and be ready to help if needed.",
	}
}

// BuildSystemPrompt renders the template and, when an assessment is given,
// appends guidance derived from it.
func (t PromptTemplate) BuildSystemPrompt(assessment *triage.Assessment, firstMessage bool) string {
	rules := make([]string, len(t.Rules))
	for i, rule := range t.Rules {
		rules[i] = fmt.Sprintf("%d. %s", i+1, rule)
	}

	var builder strings.Builder
	builder.WriteString(t.Role)
	builder.WriteString("\n\nRules:\n")
	builder.WriteString(strings.Join(rules, "\n"))
	builder.WriteString("\n\nBase your response on this template, but vary it naturally:\n")
	builder.WriteString(t.Template)

	if firstMessage {
		builder.WriteString("\n\nThis is the first message of the conversation: give the complete first aid steps.")
	} else {
		builder.WriteString("\n\nThis is a follow-up message: answer the new question directly and only repeat steps that still apply.")
	}

	if assessment == nil {
		return builder.String()
	}

	switch assessment.Subject {
	case triage.SubjectSelf:
		builder.WriteString("\nThe person messaging was bitten: address them directly as \"you\".")
	case triage.SubjectOther:
		builder.WriteString("\nSomeone else was bitten: give instructions about \"them\" to the person messaging.")
	}

	if len(assessment.Signs) > 0 {
		signs := make([]string, len(assessment.Signs))
		for i, sign := range assessment.Signs {
			signs[i] = string(sign)
		}
		builder.WriteString("\nReported warning signs: ")
		builder.WriteString(strings.Join(signs, ", "))
		builder.WriteString(".")
	}

	builder.WriteString(describeUrgency(assessment.Urgency))
	return builder.String()
}

func describeUrgency(urgency int) string {
	switch {
	case urgency >= 5:
		return "\nThis is life threatening: lead with calling 999 and keeping the airway clear."
	case urgency >= 3:
		return "\nSymptoms are developing: stress getting to a health facility without delay."
	default:
		return ""
	}
}
