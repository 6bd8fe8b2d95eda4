package ai

import (
	"strings"
	"testing"
)

func TestFallbackStatusQuery(t *testing.T) {
	reply, ok := resolveFallback("How do I check my status?")
	if !ok {
		t.Fatalf("expected status query to match a rule")
	}
	if !strings.Contains(reply, "Dashboard") {
		t.Fatalf("expected the status-check guidance, got %q", reply)
	}
}

func TestFallbackFirstRuleWinsOnOverlap(t *testing.T) {
	// "urgent" triggers the escalation rule, "account"/"settings" the account
	// rule; escalation is listed first and must win.
	reply, ok := resolveFallback("urgent issue with my account settings")
	if !ok {
		t.Fatalf("expected a rule match")
	}
	if !strings.Contains(reply, "urgent@janata.gov.in") {
		t.Fatalf("expected escalation rule to win ordering tie-break, got %q", reply)
	}

	// "help" sits earlier in the table than "urgent", so it takes the same
	// message when both appear.
	reply, ok = resolveFallback("I need urgent help with my account settings")
	if !ok {
		t.Fatalf("expected a rule match")
	}
	if !strings.Contains(reply, "I'm here to help") {
		t.Fatalf("expected the earlier help rule to win, got %q", reply)
	}
}

func TestFallbackCaseInsensitive(t *testing.T) {
	reply, ok := resolveFallback("LOGIN trouble")
	if !ok || !strings.Contains(reply, "Forgot Password") {
		t.Fatalf("expected password reset guidance for upper-cased trigger, got %q ok=%v", reply, ok)
	}
}

func TestFallbackNoMatch(t *testing.T) {
	if reply, ok := resolveFallback("asdkjasd nonsense"); ok {
		t.Fatalf("expected no match for nonsense input, got %q", reply)
	}
}

func TestFallbackCoversEveryIntent(t *testing.T) {
	cases := map[string]string{
		"any update on my complaint":     "Dashboard",
		"I want to submit something":     "Submit New Grievance",
		"how does this work":             "AI-powered suggestions",
		"what is the support phone":      "support@janata.gov.in",
		"forgot my password":             "Forgot Password",
		"please escalate this":           "urgent@janata.gov.in",
		"no water in my street":          "Infrastructure",
		"the hospital turned me away":    "Health",
		"I have feedback for the portal": "feedback@janata.gov.in",
		"change my profile picture":      "account settings",
		"the page is not working":        "techsupport@janata.gov.in",
		"can I delete my grievance":      "cannot be deleted",
	}
	for message, want := range cases {
		reply, ok := resolveFallback(message)
		if !ok {
			t.Fatalf("expected %q to match a rule", message)
		}
		if !strings.Contains(reply, want) {
			t.Fatalf("message %q: expected reply containing %q, got %q", message, want, reply)
		}
	}
}
