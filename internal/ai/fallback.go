package ai

import "strings"

// fallbackRule maps a set of trigger substrings to a canned reply. Rules are
// evaluated in order and the first match wins, so broader rules later in the
// list never shadow earlier ones.
type fallbackRule struct {
	keywords []string
	response string
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"status", "check", "update"},
		response: "You can check your grievance status in the Dashboard. Look for your submitted grievances and their current status. If you need help, contact support.",
	},
	{
		keywords: []string{"submit", "create", "new"},
		response: "To submit a new grievance, go to the Dashboard and click 'Submit New Grievance'. Provide clear details about your issue for faster resolution.",
	},
	{
		keywords: []string{"help", "how", "guide"},
		response: "I'm here to help! You can submit grievances, track their status, and get AI-powered suggestions. What specific assistance do you need?",
	},
	{
		keywords: []string{"contact", "support", "phone"},
		response: "For urgent issues, contact our support team at support@janata.gov.in or call our helpline. We're here to help!",
	},
	{
		keywords: []string{"login", "password", "forgot"},
		response: "For login issues, use the 'Forgot Password' link on the login page. If you're still having trouble, contact support@janata.gov.in.",
	},
	{
		keywords: []string{"escalate", "urgent", "priority"},
		response: "For urgent grievances, mark them as high priority during submission or contact our escalation team at urgent@janata.gov.in.",
	},
	{
		keywords: []string{"infrastructure", "roads", "water", "electricity"},
		response: "For infrastructure issues, submit under the 'Infrastructure' category with specific location details and photos if possible.",
	},
	{
		keywords: []string{"health", "medical", "hospital"},
		response: "Health-related grievances should be submitted under the 'Health' category. Include medical details and facility information.",
	},
	{
		keywords: []string{"feedback", "suggestion", "improve"},
		response: "We value your feedback! Submit portal suggestions under the 'General' category or email feedback@janata.gov.in.",
	},
	{
		keywords: []string{"account", "profile", "settings"},
		response: "Manage your account settings in the Dashboard. You can update your profile information and notification preferences there.",
	},
	{
		keywords: []string{"technical", "error", "bug", "not working"},
		response: "For technical issues, try refreshing the page or clearing your browser cache. If problems persist, contact techsupport@janata.gov.in.",
	},
	{
		keywords: []string{"delete", "remove", "cancel"},
		response: "Grievances cannot be deleted once submitted, but you can request updates or closures. Contact support for assistance.",
	},
}

// resolveFallback returns the canned reply for the first rule whose trigger
// appears in the message, or false when no rule matches.
func resolveFallback(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, rule := range fallbackRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.response, true
			}
		}
	}
	return "", false
}
