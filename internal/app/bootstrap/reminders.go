package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/reminders"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const memoryQueueBuffer = 256

// BuildReminderQueue returns the in-process queue or the SQS queue named by
// REMINDER_QUEUE_URL.
func BuildReminderQueue(cfg *appconfig.Config, awsCfg aws.Config) (reminders.Queue, error) {
	if cfg.UseMemoryQueue {
		return reminders.NewMemoryQueue(memoryQueueBuffer), nil
	}
	if strings.TrimSpace(cfg.ReminderQueueURL) == "" {
		return nil, fmt.Errorf("bootstrap: REMINDER_QUEUE_URL is required when USE_MEMORY_QUEUE is false")
	}
	return reminders.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReminderQueueURL), nil
}

// BuildReminderInbox keeps delivered reminders in Redis when available.
func BuildReminderInbox(client *redis.Client) reminders.Inbox {
	if client == nil {
		return reminders.NewMemoryInbox()
	}
	return reminders.NewRedisInbox(client, 0)
}

// StartReminders runs the due-reminder scheduler and the delivery worker as
// requested. The returned func blocks until both have stopped after ctx ends.
func StartReminders(ctx context.Context, svc *Services, cfg *appconfig.Config, logger *logging.Logger, scan, deliver bool) func() {
	if logger == nil {
		logger = logging.Default()
	}
	var wg sync.WaitGroup
	if scan {
		scheduler := reminders.NewScheduler(svc.Prescriptions, svc.Queue, logger,
			reminders.WithScanInterval(cfg.ReminderScanInterval),
			reminders.WithLocation(svc.Location),
			reminders.WithSchedulerMetrics(svc.ReminderMetrics),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}
	if deliver {
		worker := reminders.NewWorker(svc.Queue, svc.Inbox, svc.LLM, logger,
			reminders.WithWorkerCount(cfg.ReminderWorkerCount),
			reminders.WithSentRecorder(svc.Prescriptions),
			reminders.WithWorkerMetrics(svc.ReminderMetrics),
		)
		worker.Start(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Wait()
		}()
	}
	return wg.Wait
}
