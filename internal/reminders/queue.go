// Package reminders turns due medication reminders into messages waiting in
// each patient's inbox.
package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
)

// Queue carries reminder jobs from the Scheduler to Workers.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	// Attempts is how many times the queue has handed this message out,
	// when the queue tracks it.
	Attempts int
}

// Job is one reminder to deliver.
type Job struct {
	ID             string                  `json:"id"`
	ReminderID     string                  `json:"reminder_id"`
	PrescriptionID string                  `json:"prescription_id"`
	PatientID      string                  `json:"patient_id"`
	MedicationName string                  `json:"medication_name"`
	ReminderTime   prescriptions.ClockTime `json:"reminder_time"`
	DueAt          time.Time               `json:"due_at"`
}

func jobFor(due prescriptions.DueReminder, at time.Time) Job {
	return Job{
		ReminderID:     due.ReminderID,
		PrescriptionID: due.PrescriptionID,
		PatientID:      due.PatientID,
		MedicationName: due.MedicationName,
		ReminderTime:   due.ReminderTime,
		DueAt:          at,
	}
}

func encodeJob(job Job) (Job, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return Job{}, "", fmt.Errorf("reminders: failed to encode job: %w", err)
	}
	return job, string(body), nil
}

func decodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("reminders: failed to decode job: %w", err)
	}
	if job.PatientID == "" || job.MedicationName == "" {
		return Job{}, fmt.Errorf("reminders: job %s is missing patient or medication", job.ID)
	}
	return job, nil
}
