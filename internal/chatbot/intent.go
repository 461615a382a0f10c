package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const intentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["intent"],
  "additionalProperties": false,
  "properties": {
    "intent": {"type": "string", "enum": ["general", "suggest_doctor", "check_prescriptions"]},
    "specialization": {"type": "string", "maxLength": 64}
  }
}`

const intentSystemPrompt = `You route messages in a patient assistant. Read the patient's message and the assistant's answer and reply with JSON only, no prose:
{"intent": "<general|suggest_doctor|check_prescriptions>", "specialization": "<lowercase specialist title or empty>"}
Use suggest_doctor when the patient asks for a doctor or the answer recommends seeing one; set specialization to the best matching specialist such as "cardiologist" or "general practitioner".
Use check_prescriptions when the conversation is about prescriptions, medication or reminders.
Otherwise use general.`

// LLMIntentClassifier asks the model for a structured intent and falls back
// to another classifier when the answer is missing or does not validate.
type LLMIntentClassifier struct {
	client   llm.Client
	fallback IntentClassifier
	schema   *gojsonschema.Schema
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger
	timeout  time.Duration
}

func NewLLMIntentClassifier(client llm.Client, fallback IntentClassifier, m *metrics.ChatMetrics, logger *logging.Logger) (*LLMIntentClassifier, error) {
	if client == nil {
		return nil, fmt.Errorf("chatbot: llm client required for intent classification")
	}
	if fallback == nil {
		fallback = NewKeywordClassifier(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
	if err != nil {
		return nil, fmt.Errorf("chatbot: compile intent schema: %w", err)
	}
	return &LLMIntentClassifier{
		client:   client,
		fallback: fallback,
		schema:   schema,
		metrics:  m,
		logger:   logger,
		timeout:  10 * time.Second,
	}, nil
}

func (c *LLMIntentClassifier) Name() string { return "llm" }

func (c *LLMIntentClassifier) Classify(ctx context.Context, userMessage, answer string) (Intent, error) {
	intent, err := c.classify(ctx, userMessage, answer)
	if err != nil {
		c.logger.Warn("llm intent classification failed, using fallback", "error", err, "fallback", c.fallback.Name())
		return c.fallback.Classify(ctx, userMessage, answer)
	}
	return intent, nil
}

func (c *LLMIntentClassifier) classify(ctx context.Context, userMessage, answer string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.client.Complete(ctx, llm.Request{
		System: []string{intentSystemPrompt},
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Patient message:\n%s\n\nAssistant answer:\n%s", userMessage, answer),
		}},
		MaxTokens:   100,
		Temperature: 0,
	})
	c.metrics.ObserveLLMLatency("intent", err, time.Since(started).Seconds())
	if err != nil {
		return Intent{}, err
	}
	return c.parse(resp.Text)
}

func (c *LLMIntentClassifier) parse(text string) (Intent, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return Intent{}, fmt.Errorf("chatbot: no JSON object in intent answer")
	}
	result, err := c.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Intent{}, fmt.Errorf("chatbot: validate intent: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Intent{}, fmt.Errorf("chatbot: invalid intent: %s", strings.Join(msgs, "; "))
	}

	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return Intent{}, fmt.Errorf("chatbot: decode intent: %w", err)
	}
	intent.Specialization = strings.ToLower(strings.TrimSpace(intent.Specialization))
	if intent.Kind != IntentSuggestDoctor {
		intent.Specialization = ""
	}
	return intent, nil
}

// extractJSONObject trims code fences and prose around the first {...}.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
