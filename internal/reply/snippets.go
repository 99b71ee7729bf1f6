package reply

// DefaultSnippets is the seed context set. Seeding runs on every startup
// and replaces whatever the store currently holds, so the snippet
// collection is effectively process-scoped.
var DefaultSnippets = []string{
	"I am applying for backend engineering roles with a focus on distributed systems and email infrastructure.",
	"If an email mentions an interview or next steps, reply that I am available for a call this week and share the booking link https://cal.com/example.",
	"For technical screening requests, mention hands-on experience with Go, IMAP synchronization pipelines, and SQL-backed search.",
	"When a recruiter says I have been shortlisted, thank them and ask about the timeline for the next round.",
	"Keep replies short, professional, and end with an offer to schedule a call.",
}
