package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medcare-assistant/internal/auth"
	"github.com/wolfman30/medcare-assistant/internal/chatbot"
	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/internal/notify"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/reminders"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// Infra carries the connections a process opened. Nil members select the
// in-memory implementations.
type Infra struct {
	Pool     *pgxpool.Pool
	SQL      *sql.DB
	Redis    *redis.Client
	AWS      aws.Config
	Registry prometheus.Registerer
}

// Services is the wired domain layer shared by the API and the reminder
// worker binaries.
type Services struct {
	Users         users.Repository
	Tokens        *auth.TokenIssuer
	Auth          *auth.Service
	Scheduling    *scheduling.Service
	Prescriptions *prescriptions.Service
	LLM           llm.Client
	Engine        *chatbot.Engine
	Transcript    chatbot.Transcript
	Queue         reminders.Queue
	Inbox         reminders.Inbox
	Location      *time.Location

	ChatMetrics     *metrics.ChatMetrics
	BookingMetrics  *metrics.BookingMetrics
	ReminderMetrics *metrics.ReminderMetrics
}

// BuildServices wires repositories, services and the conversation engine
// from config and the connections in infra.
func BuildServices(ctx context.Context, cfg *appconfig.Config, infra Infra, logger *logging.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if infra.Registry == nil {
		infra.Registry = prometheus.NewRegistry()
	}

	location, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		logger.Warn("unknown reminder timezone; using UTC", "timezone", cfg.ReminderTimezone, "error", err)
		location = time.UTC
	}

	svc := &Services{
		Location:        location,
		ChatMetrics:     metrics.NewChatMetrics(infra.Registry),
		BookingMetrics:  metrics.NewBookingMetrics(infra.Registry),
		ReminderMetrics: metrics.NewReminderMetrics(infra.Registry),
	}

	var (
		slotRepo scheduling.Repository
		rxRepo   prescriptions.Repository
	)
	if infra.Pool != nil {
		svc.Users = users.NewPostgresRepository(infra.Pool)
		slotRepo = scheduling.NewPostgresRepository(infra.Pool)
		rxRepo = prescriptions.NewPostgresRepository(infra.Pool)
		logger.Info("using postgres repositories")
	} else {
		svc.Users = users.NewInMemoryRepository()
		slotRepo = scheduling.NewInMemoryRepository()
		rxRepo = prescriptions.NewInMemoryRepository()
		logger.Warn("no database configured; using in-memory repositories")
	}

	if cfg.JWTSecret == "" && cfg.IsProduction() {
		return nil, fmt.Errorf("bootstrap: JWT_SECRET is required in production")
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "medcare-dev-secret"
		logger.Warn("JWT_SECRET not set; using the development signing secret")
	}
	svc.Tokens = auth.NewTokenIssuer(secret, cfg.JWTIssuer, cfg.JWTTTL)
	svc.Auth = auth.NewService(svc.Users, auth.BcryptHasher{}, svc.Tokens, logger)

	notifier := notify.NewBookingNotifier(BuildEmailSender(cfg, infra.AWS, logger), svc.Users, location, logger)
	svc.Scheduling = scheduling.NewService(slotRepo, notifier, svc.BookingMetrics, logger)
	svc.Prescriptions = prescriptions.NewService(rxRepo, logger)

	svc.LLM, err = BuildLLMClient(ctx, cfg, infra.AWS, logger)
	if err != nil {
		return nil, err
	}

	svc.Queue, err = BuildReminderQueue(cfg, infra.AWS)
	if err != nil {
		return nil, err
	}
	svc.Inbox = BuildReminderInbox(infra.Redis)

	if infra.SQL != nil {
		svc.Transcript = chatbot.NewSQLTranscript(infra.SQL)
	} else {
		svc.Transcript = chatbot.NewMemoryTranscript()
	}

	svc.Engine, err = buildEngine(cfg, svc, infra.Redis, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func buildEngine(cfg *appconfig.Config, svc *Services, client *redis.Client, logger *logging.Logger) (*chatbot.Engine, error) {
	deps := chatbot.Deps{
		Directory:     users.NewDirectory(svc.Users, logger),
		Slots:         svc.Scheduling,
		Appointments:  svc.Scheduling,
		Prescriptions: svc.Prescriptions,
		LLM:           svc.LLM,
	}
	if client != nil {
		deps.States = chatbot.NewRedisStateStore(client, cfg.StateTTL)
		deps.Locker = chatbot.NewRedisLocker(client, logger)
		deps.History = chatbot.NewRedisHistory(client, cfg.HistoryMaxTurns, cfg.StateTTL)
	} else {
		deps.States = chatbot.NewMemoryStateStore()
		deps.Locker = chatbot.NewMemoryLocker()
		deps.History = chatbot.NewMemoryHistory(cfg.HistoryMaxTurns)
	}

	keyword := chatbot.NewKeywordClassifier(nil)
	var classifier chatbot.IntentClassifier = keyword
	if cfg.IntentClassifier == "llm" {
		c, err := chatbot.NewLLMIntentClassifier(svc.LLM, keyword, svc.ChatMetrics, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: intent classifier: %w", err)
		}
		classifier = c
	}

	return chatbot.NewEngine(deps,
		chatbot.WithTranscript(svc.Transcript),
		chatbot.WithClassifier(classifier),
		chatbot.WithCompletion("", int32(cfg.LLMMaxTokens), float32(cfg.LLMTemperature)),
		chatbot.WithLocation(svc.Location),
		chatbot.WithMetrics(svc.ChatMetrics),
		chatbot.WithLogger(logger),
	)
}
