package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	calls    int
	response string
	err      error
	lastReq  CompletionRequest
}

func (p *stubProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func newTestService(p Provider) *Service {
	return NewService(p, NewReplyCache(5*time.Minute, 100), "", "")
}

func TestAnalyzeSentimentClampsOutOfRangeScores(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want float64
	}{
		{`{"score": 2.5, "explanation": "over"}`, 1},
		{`{"score": -9, "explanation": "under"}`, -1},
		{`{"score": -0.4, "explanation": "in range"}`, -0.4},
	} {
		svc := newTestService(&stubProvider{response: tc.raw})
		result := svc.AnalyzeSentiment(context.Background(), "the road is broken")
		if result.Score != tc.want {
			t.Fatalf("raw %s: expected clamped score %g, got %g", tc.raw, tc.want, result.Score)
		}
	}
}

func TestAnalyzeSentimentUnconfiguredProvider(t *testing.T) {
	svc := newTestService(nil)
	result := svc.AnalyzeSentiment(context.Background(), "anything")
	if result.Score != 0 || result.Explanation != "AI service unavailable" {
		t.Fatalf("expected neutral default, got %+v", result)
	}
}

func TestAnalyzeSentimentMalformedCompletion(t *testing.T) {
	svc := newTestService(&stubProvider{response: "not json at all"})
	result := svc.AnalyzeSentiment(context.Background(), "anything")
	if result.Score != 0 || result.Explanation != "Analysis unavailable" {
		t.Fatalf("expected degraded default on malformed payload, got %+v", result)
	}
}

func TestSuggestCategoryRejectsOffSchemaEnum(t *testing.T) {
	svc := newTestService(&stubProvider{response: `{"category": "Potholes", "confidence": 0.9, "explanation": "x"}`})
	result := svc.SuggestCategory(context.Background(), "title", "desc")
	if result.Category != "General" || result.Confidence != 0.5 {
		t.Fatalf("expected default category for unknown enum value, got %+v", result)
	}
}

func TestSuggestCategorySuccess(t *testing.T) {
	svc := newTestService(&stubProvider{response: `{"category": "Health", "confidence": 0.82, "explanation": "mentions hospital"}`})
	result := svc.SuggestCategory(context.Background(), "hospital queue", "waited six hours")
	if result.Category != "Health" || result.Confidence != 0.82 {
		t.Fatalf("unexpected suggestion: %+v", result)
	}
}

func TestSuggestPriorityDefaults(t *testing.T) {
	svc := newTestService(&stubProvider{err: errors.New("boom")})
	result := svc.SuggestPriority(context.Background(), "t", "d", -0.8)
	if result.Priority != "Medium" {
		t.Fatalf("expected Medium default on provider failure, got %+v", result)
	}
}

func TestGenerateSuggestionsCapsAtThree(t *testing.T) {
	svc := newTestService(&stubProvider{response: `["a", "b", "c", "d"]`})
	got := svc.GenerateSuggestions(context.Background(), "t", "d")
	if len(got) != 3 {
		t.Fatalf("expected at most 3 suggestions, got %d", len(got))
	}
}

func TestGenerateSuggestionsEmptyWhenUnavailable(t *testing.T) {
	svc := newTestService(nil)
	if got := svc.GenerateSuggestions(context.Background(), "t", "d"); len(got) != 0 {
		t.Fatalf("expected empty suggestions, got %v", got)
	}
}

func TestGenerateResponseFallsBackToBoilerplate(t *testing.T) {
	svc := newTestService(&stubProvider{err: errors.New("timeout")})
	got := svc.GenerateResponse(context.Background(), "t", "d", "General", "Low")
	if got != fallbackDraftReply {
		t.Fatalf("expected boilerplate acknowledgment, got %q", got)
	}
}

func TestChatbotFallbackPreemptsProvider(t *testing.T) {
	provider := &stubProvider{response: "from provider"}
	svc := newTestService(provider)

	reply := svc.ChatbotReply(context.Background(), "How do I check my status?", nil)
	if reply == "" || reply == "from provider" {
		t.Fatalf("expected canned status guidance, got %q", reply)
	}
	if provider.calls != 0 {
		t.Fatalf("fallback match must not invoke the provider, calls=%d", provider.calls)
	}
	// The fallback answer is cached under the derived key.
	if cached, ok := svc.cache.Get(chatCacheKey("How do I check my status?", nil)); !ok || cached != reply {
		t.Fatalf("expected fallback reply to be cached, got %q ok=%v", cached, ok)
	}
}

func TestChatbotCacheHitSkipsProvider(t *testing.T) {
	provider := &stubProvider{response: "Here is what you can do."}
	svc := newTestService(provider)

	first := svc.ChatbotReply(context.Background(), "zxqv unmatched question", nil)
	second := svc.ChatbotReply(context.Background(), "zxqv unmatched question", nil)
	if first != second {
		t.Fatalf("expected identical replies, got %q then %q", first, second)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.calls)
	}
}

func TestChatbotUnconfiguredProviderNotCached(t *testing.T) {
	svc := newTestService(nil)

	first := svc.ChatbotReply(context.Background(), "asdkjasd nonsense", nil)
	if first != troubleReply {
		t.Fatalf("expected trouble-responding reply, got %q", first)
	}
	if svc.cache.Len() != 0 {
		t.Fatalf("provider-unavailable reply must not be cached")
	}
	if second := svc.ChatbotReply(context.Background(), "asdkjasd nonsense", nil); second != troubleReply {
		t.Fatalf("expected repeated call to reach the no-provider branch, got %q", second)
	}
}

func TestChatbotProviderFailureNotCached(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream 503")}
	svc := newTestService(provider)

	if reply := svc.ChatbotReply(context.Background(), "zxqv unmatched question", nil); reply != troubleReply {
		t.Fatalf("expected trouble-responding reply on failure, got %q", reply)
	}
	if svc.cache.Len() != 0 {
		t.Fatalf("failed provider reply must not be cached")
	}
}

func TestChatbotTruncatesHistoryToThreeTurns(t *testing.T) {
	provider := &stubProvider{response: "ok"}
	svc := newTestService(provider)

	history := []Message{
		{Role: "user", Content: "1"},
		{Role: "assistant", Content: "2"},
		{Role: "user", Content: "3"},
		{Role: "assistant", Content: "4"},
		{Role: "user", Content: "5"},
	}
	svc.ChatbotReply(context.Background(), "zxqv unmatched question", history)

	// system + 3 trailing turns + new user message
	if len(provider.lastReq.Messages) != 5 {
		t.Fatalf("expected 5 outbound messages, got %d", len(provider.lastReq.Messages))
	}
	if provider.lastReq.Messages[1].Content != "3" {
		t.Fatalf("expected history truncated to trailing turns, first kept turn = %q", provider.lastReq.Messages[1].Content)
	}
}
