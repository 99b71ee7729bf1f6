package reply

import "strings"

// Rule-based reply templates, the fallback when no generator is configured
// or generation fails. Order matters: first matching key wins.
var templates = []struct {
	key  string
	text string
}{
	{
		key:  "interview",
		text: "Thank you for reaching out about the interview. I am available this week and happy to schedule a call at a time that works for you. You can book a slot here: https://cal.com/example. Looking forward to speaking.",
	},
	{
		key:  "shortlisted",
		text: "Thank you for the update, it is great to hear I have been shortlisted. I would be glad to move forward with the next steps. Please let me know what you need from my side.",
	},
	{
		key:  "interested",
		text: "Thanks for your interest. I would be happy to share more details and answer any questions. Would a short call this week work for you?",
	},
	{
		key:  "technical",
		text: "Thanks for the technical details. I have reviewed them and can walk through my approach on a call. Let me know a convenient time and I will send an invite.",
	},
}

const genericTemplate = "Thank you for your email. I have received your message and will get back to you with a detailed response shortly."

// selectTemplate picks the first template whose key appears in the text.
func selectTemplate(text string) string {
	lower := strings.ToLower(text)
	for _, t := range templates {
		if strings.Contains(lower, t.key) {
			return t.text
		}
	}
	return genericTemplate
}
