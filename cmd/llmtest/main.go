package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/medcare-assistant/cmd/mainconfig"
	"github.com/wolfman30/medcare-assistant/internal/app/bootstrap"
	"github.com/wolfman30/medcare-assistant/internal/chatbot"
	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// llmtest sends one healthcare question through the configured provider
// chain and shows how both intent classifiers read the answer.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	question := flag.String("q", "I've had chest pain and shortness of breath since yesterday.", "patient message")
	reminder := flag.String("medication", "", "also generate a reminder for this medication")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	client, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		log.Fatalf("build llm client: %v", err)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("LLM provider test (%s, fallback %q)\n", cfg.LLMProvider, cfg.LLMFallbackProvider)
	fmt.Println(strings.Repeat("=", 60))

	start := time.Now()
	resp, err := client.Complete(ctx, llm.Request{
		System:      []string{llm.HealthcareSystemPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: *question}},
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	})
	if err != nil {
		fmt.Printf("\n[1] completion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n[1] answer (%v, in=%d out=%d):\n%s\n", time.Since(start).Round(time.Millisecond), resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Text)

	keyword := chatbot.NewKeywordClassifier(nil)
	intent, _ := keyword.Classify(ctx, strings.ToLower(*question), resp.Text)
	fmt.Printf("\n[2] keyword intent: %s %s\n", intent.Kind, intent.Specialization)

	if classifier, err := chatbot.NewLLMIntentClassifier(client, keyword, nil, logger); err == nil {
		intent, _ = classifier.Classify(ctx, *question, resp.Text)
		fmt.Printf("[3] llm intent:     %s %s\n", intent.Kind, intent.Specialization)
	}

	if *reminder != "" {
		resp, err = client.Complete(ctx, llm.Request{
			System:      []string{llm.ReminderSystemPrompt},
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf("Remind me to take my medication: %s.", *reminder)}},
			MaxTokens:   150,
			Temperature: 0.7,
		})
		if err != nil {
			fmt.Printf("\n[4] reminder failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n[4] reminder:\n%s\n", resp.Text)
	}
}
