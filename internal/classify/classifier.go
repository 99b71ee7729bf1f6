package classify

import (
	"strings"
	"unicode"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// Rule phrase lists. Evaluation order is fixed: out-of-office beats spam,
// spam beats meeting, and so on down to the interested/not-interested pair.
var (
	outOfOfficePhrases = []string{
		"out of office",
		"ooo",
		"auto reply",
		"auto-reply",
		"automatic reply",
		"on vacation",
		"on annual leave",
		"away from my desk",
		"currently unavailable",
		"will respond when i return",
	}

	spamPhrases = []string{
		"you have won",
		"claim your prize",
		"lottery",
		"free money",
		"act now",
		"limited time offer",
		"100% free",
		"risk-free",
		"make money fast",
		"wire transfer urgently",
		"casino bonus",
	}

	meetingPhrases = []string{
		"meeting confirmed",
		"meeting booked",
		"meeting scheduled",
		"interview scheduled",
		"scheduled",
		"calendar invite",
		"invite accepted",
		"appointment confirmed",
		"booked a slot",
		"calendly.com",
		"see you at",
	}

	interestedPhrases = []string{
		"interested",
		"sounds good",
		"tell me more",
		"would love to",
		"let's connect",
		"keen to learn",
		"happy to chat",
		"share more details",
		"looking forward to hearing",
	}

	notInterestedPhrases = []string{
		"not interested",
		"no longer interested",
		"not a good fit",
		"no thank you",
		"unsubscribe",
		"please remove me",
		"stop emailing",
		"we went with another",
		"decline",
	}
)

// Classifier assigns exactly one category to a message using ordered
// substring rules. Pure and deterministic: same message, same category.
type Classifier struct{}

// New creates a new Classifier
func New() *Classifier {
	return &Classifier{}
}

// Classify maps a message to a category. First matching rule wins.
func (c *Classifier) Classify(msg *models.Message) models.Category {
	text := strings.ToLower(msg.Subject + " " + msg.Body)

	switch {
	case containsAny(text, outOfOfficePhrases):
		return models.CategoryOutOfOffice
	case containsAny(text, spamPhrases) || looksLikeShoutySpam(msg.Subject, msg.From):
		return models.CategorySpam
	case containsAny(text, meetingPhrases):
		return models.CategoryMeetingBooked
	case containsAny(text, interestedPhrases):
		return models.CategoryInterested
	case containsAny(text, notInterestedPhrases):
		return models.CategoryNotInterested
	default:
		return models.CategoryUncategorized
	}
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// looksLikeShoutySpam flags all-caps subjects from suspicious senders even
// when no spam keyword is present.
func looksLikeShoutySpam(subject, from string) bool {
	if len(subject) <= 10 {
		return false
	}
	if capsRatio(subject) <= 0.5 {
		return false
	}
	sender := strings.ToLower(from)
	return strings.Contains(sender, "noreply") ||
		strings.Contains(sender, "no-reply") ||
		!strings.Contains(sender, "@")
}

// capsRatio is the count of uppercase letters over the full subject length.
func capsRatio(subject string) float64 {
	if subject == "" {
		return 0
	}
	upper := 0
	for _, r := range subject {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len([]rune(subject)))
}
