package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	generateTimeout      = 15 * time.Second
	maxDeliveryAttempts  = 5
)

// FallbackMessage is delivered when the model cannot write a reminder.
func FallbackMessage(medication string) string {
	return fmt.Sprintf("Reminder: Please take your medication %s. Take care of yourself!", medication)
}

// Worker consumes reminder jobs, writes the reminder text and drops it in
// the patient's inbox.
type Worker struct {
	queue   Queue
	inbox   Inbox
	llm     llm.Client
	sent    DueSource
	metrics *metrics.ReminderMetrics
	logger  *logging.Logger
	now     func() time.Time

	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	model            string

	wg sync.WaitGroup
}

type WorkerOption func(*Worker)

func WithWorkerCount(count int) WorkerOption {
	return func(w *Worker) {
		if count > 0 {
			w.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait, capped at the SQS maximum.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(w *Worker) {
		if seconds < 0 {
			return
		}
		w.receiveWaitSecs = min(seconds, maxWaitSeconds)
	}
}

func WithReceiveBatchSize(size int) WorkerOption {
	return func(w *Worker) {
		if size > 0 {
			w.receiveBatchSize = min(size, maxReceiveBatchSize)
		}
	}
}

// WithSentRecorder stamps delivery time on the reminder after the notice
// reaches the inbox.
func WithSentRecorder(r DueSource) WorkerOption {
	return func(w *Worker) { w.sent = r }
}

func WithWorkerMetrics(m *metrics.ReminderMetrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithModel(model string) WorkerOption {
	return func(w *Worker) { w.model = model }
}

func NewWorker(queue Queue, inbox Inbox, client llm.Client, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("reminders: queue cannot be nil")
	}
	if inbox == nil {
		panic("reminders: inbox cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{
		queue:            queue,
		inbox:            inbox,
		llm:              client,
		logger:           logger,
		now:              time.Now,
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer goroutines; they exit when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("reminder worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			w.logger.Debug("reminder worker stopping", "worker_id", workerID)
			return
		}

		messages, err := w.queue.Receive(ctx, w.receiveBatchSize, w.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive reminder jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		w.logger.Error("dropping undecodable reminder job", "msg_id", msg.ID, "error", err)
		w.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}
	if err := w.Deliver(ctx, job); err != nil {
		if msg.Attempts >= maxDeliveryAttempts {
			w.logger.Error("giving up on reminder job", "job_id", job.ID, "reminder_id", job.ReminderID, "attempts", msg.Attempts, "error", err)
			w.deleteMessage(ctx, msg.ReceiptHandle)
			return
		}
		// Left on the queue for redelivery.
		w.logger.Error("failed to deliver reminder", "job_id", job.ID, "reminder_id", job.ReminderID, "error", err)
		return
	}
	w.deleteMessage(ctx, msg.ReceiptHandle)
}

// Deliver writes the reminder text for job and pushes it to the inbox.
func (w *Worker) Deliver(ctx context.Context, job Job) error {
	text, source := w.compose(ctx, job.MedicationName)

	err := w.inbox.Push(ctx, job.PatientID, Notice{
		PrescriptionID: job.PrescriptionID,
		MedicationName: job.MedicationName,
		Message:        text,
		CreatedAt:      w.now().UTC(),
	})
	w.metrics.ObserveDispatched(source, err)
	if err != nil {
		return err
	}

	if w.sent != nil && job.ReminderID != "" {
		if err := w.sent.MarkSent(ctx, job.ReminderID, w.now()); err != nil {
			w.logger.Warn("failed to record reminder delivery", "reminder_id", job.ReminderID, "error", err)
		}
	}
	w.logger.Info("reminder delivered", "job_id", job.ID, "patient_id", job.PatientID, "source", source)
	return nil
}

// compose asks the model for a friendly reminder and falls back to a fixed
// sentence on any failure.
func (w *Worker) compose(ctx context.Context, medication string) (string, string) {
	if w.llm == nil {
		return FallbackMessage(medication), "fallback"
	}
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := w.llm.Complete(ctx, llm.Request{
		Model:  w.model,
		System: []string{llm.ReminderSystemPrompt},
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Remind me to take my medication: %s.", medication),
		}},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	text := strings.TrimSpace(resp.Text)
	if err != nil || text == "" {
		w.logger.Warn("reminder generation failed, using fallback", "medication", medication, "error", err)
		return FallbackMessage(medication), "fallback"
	}
	return text, "llm"
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete reminder job", "error", err)
	}
}
