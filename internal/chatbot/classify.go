package chatbot

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Vocabulary holds the word lists that drive stage transitions and intent
// classification.
type Vocabulary struct {
	ResetWords     []string `yaml:"reset_words"`
	Affirmative    []string `yaml:"affirmative"`
	Negative       []string `yaml:"negative"`
	ExitWords      []string `yaml:"exit_words"`
	Specialization []struct {
		Name     string   `yaml:"specialization"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"specialization_keywords"`
	DoctorIndicators []string `yaml:"doctor_indicators"`
	Symptoms         []struct {
		Symptom        string `yaml:"symptom"`
		Specialization string `yaml:"specialization"`
	} `yaml:"symptoms"`
	GeneralIndicators     []string `yaml:"general_indicators"`
	GeneralSpecialization string   `yaml:"general_specialization"`
	PrescriptionKeywords  []string `yaml:"prescription_keywords"`

	doctorRe  []*regexp.Regexp
	generalRe []*regexp.Regexp
}

// ParseVocabulary decodes a YAML vocabulary and compiles its patterns.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("chatbot: decode vocabulary: %w", err)
	}
	var err error
	if v.doctorRe, err = compileAll(v.DoctorIndicators); err != nil {
		return nil, err
	}
	if v.generalRe, err = compileAll(v.GeneralIndicators); err != nil {
		return nil, err
	}
	return &v, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("chatbot: compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

var (
	defaultVocabOnce sync.Once
	defaultVocab     *Vocabulary
)

// DefaultVocabulary is the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	defaultVocabOnce.Do(func() {
		v, err := ParseVocabulary(vocabularyYAML)
		if err != nil {
			panic(err)
		}
		defaultVocab = v
	})
	return defaultVocab
}

func (v *Vocabulary) IsReset(msg string) bool       { return slices.Contains(v.ResetWords, msg) }
func (v *Vocabulary) IsAffirmative(msg string) bool { return slices.Contains(v.Affirmative, msg) }
func (v *Vocabulary) IsNegative(msg string) bool    { return slices.Contains(v.Negative, msg) }
func (v *Vocabulary) IsExit(msg string) bool        { return slices.Contains(v.ExitWords, msg) }

// ExplicitSpecialization returns the specialist the patient asked for by
// name, or "".
func (v *Vocabulary) ExplicitSpecialization(msg string) string {
	msg = strings.ToLower(msg)
	for _, s := range v.Specialization {
		for _, kw := range s.Keywords {
			if strings.Contains(msg, kw) {
				return s.Name
			}
		}
	}
	return ""
}

func (v *Vocabulary) NeedsDoctor(msg, answer string) bool {
	msg, answer = strings.ToLower(msg), strings.ToLower(answer)
	for _, re := range v.doctorRe {
		if re.MatchString(msg) || re.MatchString(answer) {
			return true
		}
	}
	return false
}

// SpecializationFromAnswer maps symptoms named in the answer to a
// specialist, then falls back to a general practitioner when the answer
// suggests medical help. It returns "" when neither applies.
func (v *Vocabulary) SpecializationFromAnswer(answer string) string {
	answer = strings.ToLower(answer)
	for _, s := range v.Symptoms {
		if strings.Contains(answer, s.Symptom) {
			return s.Specialization
		}
	}
	for _, re := range v.generalRe {
		if re.MatchString(answer) {
			return v.GeneralSpecialization
		}
	}
	return ""
}

func (v *Vocabulary) NeedsPrescriptionCheck(msg, answer string) bool {
	msg, answer = strings.ToLower(msg), strings.ToLower(answer)
	for _, kw := range v.PrescriptionKeywords {
		if strings.Contains(msg, kw) || strings.Contains(answer, kw) {
			return true
		}
	}
	return false
}

type IntentKind string

const (
	IntentGeneral            IntentKind = "general"
	IntentSuggestDoctor      IntentKind = "suggest_doctor"
	IntentCheckPrescriptions IntentKind = "check_prescriptions"
)

// Intent is what the patient's message calls for after the assistant has
// answered it. Specialization is only meaningful for IntentSuggestDoctor and
// may be empty when no specialist could be determined.
type Intent struct {
	Kind           IntentKind `json:"intent"`
	Specialization string     `json:"specialization,omitempty"`
}

type IntentClassifier interface {
	Classify(ctx context.Context, userMessage, answer string) (Intent, error)
	Name() string
}

// KeywordClassifier classifies with the vocabulary's word lists.
type KeywordClassifier struct {
	vocab *Vocabulary
}

func NewKeywordClassifier(vocab *Vocabulary) *KeywordClassifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &KeywordClassifier{vocab: vocab}
}

func (c *KeywordClassifier) Name() string { return "keyword" }

func (c *KeywordClassifier) Classify(_ context.Context, userMessage, answer string) (Intent, error) {
	if spec := c.vocab.ExplicitSpecialization(userMessage); spec != "" {
		return Intent{Kind: IntentSuggestDoctor, Specialization: spec}, nil
	}
	if c.vocab.NeedsDoctor(userMessage, answer) {
		return Intent{Kind: IntentSuggestDoctor, Specialization: c.vocab.SpecializationFromAnswer(answer)}, nil
	}
	if c.vocab.NeedsPrescriptionCheck(userMessage, answer) {
		return Intent{Kind: IntentCheckPrescriptions}, nil
	}
	return Intent{Kind: IntentGeneral}, nil
}
