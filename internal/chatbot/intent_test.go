package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/llm"
)

type fixedClassifier struct {
	intent Intent
	calls  int
}

func (f *fixedClassifier) Name() string { return "fixed" }

func (f *fixedClassifier) Classify(context.Context, string, string) (Intent, error) {
	f.calls++
	return f.intent, nil
}

func TestNewLLMIntentClassifierRequiresClient(t *testing.T) {
	_, err := NewLLMIntentClassifier(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestLLMIntentClassifier(t *testing.T) {
	fallbackIntent := Intent{Kind: IntentGeneral}

	tests := []struct {
		name         string
		reply        string
		err          error
		want         Intent
		wantFallback bool
	}{
		{
			name:  "plain json",
			reply: `{"intent": "suggest_doctor", "specialization": " Cardiologist "}`,
			want:  Intent{Kind: IntentSuggestDoctor, Specialization: "cardiologist"},
		},
		{
			name:  "fenced json with prose",
			reply: "Here you go:\n```json\n{\"intent\": \"check_prescriptions\"}\n```",
			want:  Intent{Kind: IntentCheckPrescriptions},
		},
		{
			name:  "specialization dropped for other intents",
			reply: `{"intent": "general", "specialization": "dermatologist"}`,
			want:  Intent{Kind: IntentGeneral},
		},
		{
			name:         "unknown intent",
			reply:        `{"intent": "book_spa_day"}`,
			want:         fallbackIntent,
			wantFallback: true,
		},
		{
			name:         "extra fields",
			reply:        `{"intent": "general", "confidence": 0.9}`,
			want:         fallbackIntent,
			wantFallback: true,
		},
		{
			name:         "no json",
			reply:        "general",
			want:         fallbackIntent,
			wantFallback: true,
		},
		{
			name:         "llm error",
			err:          errors.New("throttled"),
			want:         fallbackIntent,
			wantFallback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got llm.Request
			client := llm.ClientFunc(func(_ context.Context, req llm.Request) (llm.Response, error) {
				got = req
				return llm.Response{Text: tt.reply}, tt.err
			})
			fallback := &fixedClassifier{intent: fallbackIntent}
			c, err := NewLLMIntentClassifier(client, fallback, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, "llm", c.Name())

			intent, err := c.Classify(context.Background(), "my chest hurts", "Chest pain needs care.")
			require.NoError(t, err)
			assert.Equal(t, tt.want, intent)
			if tt.wantFallback {
				assert.Equal(t, 1, fallback.calls)
			} else {
				assert.Zero(t, fallback.calls)
			}

			assert.Equal(t, int32(100), got.MaxTokens)
			assert.Zero(t, got.Temperature)
			require.Len(t, got.Messages, 1)
			assert.Contains(t, got.Messages[0].Content, "my chest hurts")
			assert.Contains(t, got.Messages[0].Content, "Chest pain needs care.")
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`x {"a":{"b":1}} y`))
	assert.Empty(t, extractJSONObject("} {"))
	assert.Empty(t, extractJSONObject("nothing here"))
}
