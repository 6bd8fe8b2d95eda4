package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Grievance categories the portal recognizes.
var Categories = []string{"Infrastructure", "Health", "Education", "Environment", "General", "Other"}

// Priorities a grievance can carry.
var Priorities = []string{"Low", "Medium", "High"}

const (
	defaultModel     = "gpt-3.5-turbo"
	defaultChatModel = "gpt-4o-mini"

	troubleReply = "I'm sorry, I'm having trouble responding right now. Please try again or contact our support team."

	fallbackDraftReply = "Thank you for bringing this to our attention. We are reviewing your grievance and will respond shortly."
)

type SentimentResult struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type CategorySuggestion struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

type PrioritySuggestion struct {
	Priority  string `json:"priority"`
	Reasoning string `json:"reasoning"`
}

// Provider completions for the structured operations are declared to be JSON;
// each payload is checked against its schema before use so a malformed or
// off-contract completion degrades to the default instead of leaking through.
var (
	sentimentSchema = jsonschema.MustCompileString("sentiment.json", `{
		"type": "object",
		"required": ["score", "explanation"],
		"properties": {
			"score": {"type": "number"},
			"explanation": {"type": "string"}
		}
	}`)
	categorySchema = jsonschema.MustCompileString("category.json", `{
		"type": "object",
		"required": ["category", "confidence", "explanation"],
		"properties": {
			"category": {"enum": ["Infrastructure", "Health", "Education", "Environment", "General", "Other"]},
			"confidence": {"type": "number"},
			"explanation": {"type": "string"}
		}
	}`)
	prioritySchema = jsonschema.MustCompileString("priority.json", `{
		"type": "object",
		"required": ["priority", "reasoning"],
		"properties": {
			"priority": {"enum": ["Low", "Medium", "High"]},
			"reasoning": {"type": "string"}
		}
	}`)
	suggestionsSchema = jsonschema.MustCompileString("suggestions.json", `{
		"type": "array",
		"items": {"type": "string"}
	}`)
)

// Service is the inference gateway. The external provider is best effort:
// every operation resolves to a usable value, never an error, so the
// grievance workflow cannot fail because AI enrichment did.
type Service struct {
	provider  Provider
	cache     *ReplyCache
	model     string
	chatModel string
}

// NewService wires the gateway with an injected provider and cache. A nil
// provider means the external service is unconfigured and all operations
// return their documented defaults.
func NewService(provider Provider, cache *ReplyCache, model, chatModel string) *Service {
	if cache == nil {
		cache = NewReplyCache(DefaultCacheTTL, DefaultCacheCapacity)
	}
	if model == "" {
		model = defaultModel
	}
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	return &Service{provider: provider, cache: cache, model: model, chatModel: chatModel}
}

// AnalyzeSentiment scores grievance text from -1 (very negative) to 1 (very
// positive). The provider score is clamped into range regardless of what the
// upstream returns.
func (s *Service) AnalyzeSentiment(ctx context.Context, text string) SentimentResult {
	if s.provider == nil {
		return SentimentResult{Score: 0, Explanation: "AI service unavailable"}
	}
	var result SentimentResult
	err := s.completeJSON(ctx, s.model,
		"Analyze the sentiment of this grievance text and return a score from -1 (very negative) to 1 (very positive). Also provide a brief explanation. Return as JSON: {score: number, explanation: string}",
		text, 150, 0.3, sentimentSchema, &result)
	if err != nil {
		log.Printf("sentiment analysis failed: %v", err)
		return SentimentResult{Score: 0, Explanation: "Analysis unavailable"}
	}
	result.Score = clamp(result.Score, -1, 1)
	return result
}

// SuggestCategory picks the most fitting category for a grievance.
func (s *Service) SuggestCategory(ctx context.Context, title, description string) CategorySuggestion {
	if s.provider == nil {
		return CategorySuggestion{Category: "General", Confidence: 0.5, Explanation: "AI service unavailable"}
	}
	var result CategorySuggestion
	err := s.completeJSON(ctx, s.model,
		"Based on the grievance title and description, suggest the most appropriate category from: Infrastructure, Health, Education, Environment, General, Other. Return as JSON: {category: string, confidence: number, explanation: string}",
		fmt.Sprintf("Title: %s\nDescription: %s", title, description), 150, 0.3, categorySchema, &result)
	if err != nil {
		log.Printf("category suggestion failed: %v", err)
		return CategorySuggestion{Category: "General", Confidence: 0.5, Explanation: "Default category"}
	}
	return result
}

// SuggestPriority picks a priority from content plus the sentiment score.
func (s *Service) SuggestPriority(ctx context.Context, title, description string, sentimentScore float64) PrioritySuggestion {
	if s.provider == nil {
		return PrioritySuggestion{Priority: "Medium", Reasoning: "AI service unavailable"}
	}
	var result PrioritySuggestion
	err := s.completeJSON(ctx, s.model,
		"Based on the grievance content and sentiment score (-1 to 1), suggest priority: Low, Medium, or High. Consider urgency indicators, impact level, and emotional intensity. Return as JSON: {priority: string, reasoning: string}",
		fmt.Sprintf("Title: %s\nDescription: %s\nSentiment Score: %g", title, description, sentimentScore), 150, 0.3, prioritySchema, &result)
	if err != nil {
		log.Printf("priority suggestion failed: %v", err)
		return PrioritySuggestion{Priority: "Medium", Reasoning: "Default priority"}
	}
	return result
}

// GenerateSuggestions returns up to three improvements for a draft grievance,
// or an empty list when the provider is unavailable.
func (s *Service) GenerateSuggestions(ctx context.Context, title, description string) []string {
	if s.provider == nil {
		return []string{}
	}
	var result []string
	err := s.completeJSON(ctx, s.model,
		"Provide 2-3 specific suggestions to improve this grievance submission. Focus on clarity, additional details needed, and how to make it more actionable. Return as JSON array of strings.",
		fmt.Sprintf("Title: %s\nDescription: %s", title, description), 200, 0.7, suggestionsSchema, &result)
	if err != nil {
		log.Printf("suggestion generation failed: %v", err)
		return []string{}
	}
	if len(result) > 3 {
		result = result[:3]
	}
	return result
}

// GenerateResponse drafts an officer-facing reply for a grievance.
func (s *Service) GenerateResponse(ctx context.Context, title, description, category, priority string) string {
	if s.provider == nil {
		return fallbackDraftReply
	}
	out, err := s.provider.Complete(ctx, CompletionRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: "Generate a professional, empathetic response draft for this grievance. Include acknowledgment, next steps, and timeline. Keep it under 200 words. Be helpful and solution-oriented."},
			{Role: "user", Content: fmt.Sprintf("Category: %s\nPriority: %s\nTitle: %s\nDescription: %s", category, priority, title, description)},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("response generation failed: %v", err)
		return fallbackDraftReply
	}
	return strings.TrimSpace(out)
}

// ChatbotReply answers a portal user. Lookup order: cache, then the canned
// fallback table, then the provider. Fallback matches pre-empt the provider
// call so recognized intents answer immediately. Provider-unavailable replies
// are never cached, so a later configuration change or retry is not defeated
// by a stale miss.
func (s *Service) ChatbotReply(ctx context.Context, message string, history []Message) string {
	key := chatCacheKey(message, history)
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	if reply, ok := resolveFallback(message); ok {
		s.cache.Set(key, reply)
		return reply
	}

	if s.provider == nil {
		return troubleReply
	}

	messages := []Message{{
		Role:    "system",
		Content: "You are a helpful AI assistant for the Janata Feedback Portal. Provide FAST, actionable solutions and immediate help. Focus on: grievance submission guidance, status checking, quick fixes, and direct support. Be concise but helpful. Prioritize real-time solutions over conversation.",
	}}
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: message})

	out, err := s.provider.Complete(ctx, CompletionRequest{
		Model:       s.chatModel,
		Messages:    messages,
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		log.Printf("chatbot reply failed: %v", err)
		return troubleReply
	}
	reply := strings.TrimSpace(out)
	s.cache.Set(key, reply)
	return reply
}

// completeJSON runs one structured completion and validates the payload
// against schema before decoding it into out. Transport failures and
// off-schema payloads share the same error path.
func (s *Service) completeJSON(ctx context.Context, model, system, user string, maxTokens int, temperature float64, schema *jsonschema.Schema, out any) error {
	raw, err := s.provider.Complete(ctx, CompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("malformed completion: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("completion failed schema validation: %w", err)
	}
	return json.Unmarshal([]byte(raw), out)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
