package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const (
	msgReset              = "The conversation has been reset. You can start by asking a new question."
	msgResetHint          = " You can type 'reset' or 'start over' to begin a new conversation."
	msgDoctorNotFound     = "I couldn't find the doctor you mentioned. Please enter the full name of the doctor you want to select, or type 'reset' to ask another question."
	msgInvalidSlotNumber  = "Invalid slot number. Please select a valid number from the list."
	msgSlotNotANumber     = "Please enter a valid number corresponding to the time slot you want to book."
	msgSlotTaken          = "Sorry, this time slot is no longer available. Please select a different time slot."
	msgNoPrescriptions    = "It appears that your doctor hasn't entered any prescriptions for you at the moment."
	msgNoNewPrescriptions = "It appears that your doctor hasn't entered any new prescriptions for you at the moment."
	msgAllCovered         = "All your active prescriptions already have active reminders."
	msgExitAck            = "Understood. Is there anything else I can help you with?"
	msgExitUnknown        = "I'm sorry, I didn't understand that. If you're done, you can say 'okay' or 'exit'. Is there anything else I can help you with?"
	msgAllActivated       = "All reminders have already been activated."
	msgAllProcessed       = "All prescriptions have been processed."
	msgAskNewTimes        = "Please provide the new times for your reminders. You can specify them in the format 'HH:MM AM/PM', separated by commas. For example: '09:00 AM, 01:00 PM, 06:00 PM'."
	msgYesOrNo            = "I didn't understand that. Please answer with 'Yes' or 'No'."
	msgBadTimes           = "There was an error processing the new times. Please try again using the format 'HH:MM AM/PM'."
	msgMissingRx          = "Sorry, there was an issue finding your prescription."
	msgMoreDetails        = "Can you provide more details about your symptoms? For example, is the pain sharp, dull, or radiating to other areas?"
)

const slotClock = "03:04 PM"

const defaultTurnTimeout = 25 * time.Second

// Engine runs one conversation turn at a time per patient.
type Engine struct {
	directory     DoctorDirectory
	slots         SlotBooker
	appointments  AppointmentLookup
	prescriptions PrescriptionDesk
	states        StateStore
	locker        Locker
	history       History
	transcript    Transcript
	llm           llm.Client
	classifier    IntentClassifier
	vocab         *Vocabulary

	model       string
	maxTokens   int32
	temperature float32
	location    *time.Location
	turnTimeout time.Duration

	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Deps are the collaborators an Engine cannot run without.
type Deps struct {
	Directory     DoctorDirectory
	Slots         SlotBooker
	Appointments  AppointmentLookup
	Prescriptions PrescriptionDesk
	States        StateStore
	Locker        Locker
	History       History
	LLM           llm.Client
}

type Option func(*Engine)

func WithTranscript(t Transcript) Option { return func(e *Engine) { e.transcript = t } }

func WithClassifier(c IntentClassifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

func WithVocabulary(v *Vocabulary) Option {
	return func(e *Engine) {
		if v != nil {
			e.vocab = v
		}
	}
}

// WithCompletion overrides the model, token budget and temperature of
// general chat completions.
func WithCompletion(model string, maxTokens int32, temperature float32) Option {
	return func(e *Engine) {
		e.model = model
		if maxTokens > 0 {
			e.maxTokens = maxTokens
		}
		e.temperature = temperature
	}
}

// WithLocation sets the zone slot times are shown in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithTurnTimeout bounds a whole turn, including every LLM call made while
// the patient's lock is held.
func WithTurnTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.turnTimeout = d
		}
	}
}

func WithMetrics(m *metrics.ChatMetrics) Option { return func(e *Engine) { e.metrics = m } }

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func withClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(deps Deps, opts ...Option) (*Engine, error) {
	switch {
	case deps.Directory == nil:
		return nil, errors.New("chatbot: doctor directory required")
	case deps.Slots == nil:
		return nil, errors.New("chatbot: slot booker required")
	case deps.Appointments == nil:
		return nil, errors.New("chatbot: appointment lookup required")
	case deps.Prescriptions == nil:
		return nil, errors.New("chatbot: prescription desk required")
	case deps.States == nil:
		return nil, errors.New("chatbot: state store required")
	case deps.Locker == nil:
		return nil, errors.New("chatbot: locker required")
	case deps.History == nil:
		return nil, errors.New("chatbot: history store required")
	case deps.LLM == nil:
		return nil, errors.New("chatbot: llm client required")
	}
	e := &Engine{
		directory:     deps.Directory,
		slots:         deps.Slots,
		appointments:  deps.Appointments,
		prescriptions: deps.Prescriptions,
		states:        deps.States,
		locker:        deps.Locker,
		history:       deps.History,
		llm:           deps.LLM,
		vocab:         DefaultVocabulary(),
		maxTokens:     150,
		temperature:   0.7,
		location:      time.UTC,
		turnTimeout:   defaultTurnTimeout,
		logger:        logging.Default(),
		tracer:        otel.Tracer("medcare.internal.chatbot"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = NewKeywordClassifier(e.vocab)
	}
	return e, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrChatbotUnavailable, err)
}

// Handle processes one patient message and returns the assistant's reply.
// Any collaborator failure is reported as ErrChatbotUnavailable and leaves
// the stored state untouched.
func (e *Engine) Handle(ctx context.Context, patientID, text string) (Reply, error) {
	ctx, span := e.tracer.Start(ctx, "chatbot.handle", trace.WithAttributes(attribute.String("patient_id", patientID)))
	defer span.End()

	if patientID == "" {
		return Reply{}, errors.New("chatbot: patient id required")
	}
	raw := strings.TrimSpace(text)
	msg := strings.ToLower(raw)

	unlock, err := e.locker.Lock(ctx, patientID)
	if err != nil {
		span.RecordError(err)
		return Reply{}, unavailable(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	state, err := e.load(ctx, patientID)
	if err != nil {
		span.RecordError(err)
		return Reply{}, unavailable(err)
	}
	from := state.Stage
	span.SetAttributes(attribute.String("stage", string(from)))

	var reply Reply
	if e.vocab.IsReset(msg) {
		reply = e.reset(ctx, state)
	} else {
		reply, err = e.dispatch(ctx, state, msg)
		if err != nil {
			span.RecordError(err)
			e.metrics.ObserveTurn(string(from), "error")
			e.logger.Error("chat turn failed", "patient_id", patientID, "stage", from, "error", err)
			return Reply{}, unavailable(err)
		}
	}
	reply.Stage = state.Stage
	state.UpdatedAt = e.now()

	if err := e.states.Save(ctx, state); err != nil {
		span.RecordError(err)
		e.metrics.ObserveTurn(string(from), "error")
		return Reply{}, unavailable(err)
	}
	e.record(ctx, patientID, raw, reply)
	e.metrics.ObserveTurn(string(from), "ok")
	e.metrics.ObserveTransition(string(from), string(state.Stage))
	e.logger.Debug("chat turn handled", "patient_id", patientID, "from", from, "to", state.Stage)
	return reply, nil
}

// State returns the stored conversation state, or a fresh one.
func (e *Engine) State(ctx context.Context, patientID string) (*State, error) {
	return e.load(ctx, patientID)
}

// Reset clears the patient's conversation as if they had typed "reset".
func (e *Engine) Reset(ctx context.Context, patientID string) (Reply, error) {
	unlock, err := e.locker.Lock(ctx, patientID)
	if err != nil {
		return Reply{}, unavailable(err)
	}
	defer unlock()

	state, err := e.load(ctx, patientID)
	if err != nil {
		return Reply{}, unavailable(err)
	}
	reply := e.reset(ctx, state)
	reply.Stage = state.Stage
	state.UpdatedAt = e.now()
	if err := e.states.Save(ctx, state); err != nil {
		return Reply{}, unavailable(err)
	}
	return reply, nil
}

func (e *Engine) load(ctx context.Context, patientID string) (*State, error) {
	state, err := e.states.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = newState(patientID)
	}
	if state.Stage == "" {
		state.Stage = StageInitial
	}
	state.PatientID = patientID
	return state, nil
}

func (e *Engine) record(ctx context.Context, patientID, userText string, reply Reply) {
	if e.transcript == nil {
		return
	}
	now := e.now()
	err := e.transcript.Append(ctx,
		TranscriptEntry{PatientID: patientID, Role: llm.RoleUser, Content: userText, Stage: reply.Stage, CreatedAt: now},
		TranscriptEntry{PatientID: patientID, Role: llm.RoleAssistant, Content: reply.Response, Stage: reply.Stage, CreatedAt: now},
	)
	if err != nil {
		e.logger.Warn("failed to append chat transcript", "patient_id", patientID, "error", err)
	}
}

func (e *Engine) reset(ctx context.Context, state *State) Reply {
	state.resetTo(StageGeneral)
	if err := e.history.Clear(ctx, state.PatientID); err != nil {
		e.logger.Warn("failed to clear llm history", "patient_id", state.PatientID, "error", err)
	}
	return Reply{Response: msgReset}
}

func (e *Engine) dispatch(ctx context.Context, state *State, msg string) (Reply, error) {
	switch state.Stage {
	case StageAwaitingDoctorSelection:
		return e.selectDoctor(ctx, state, msg)
	case StageAwaitingSlotSelection:
		return e.selectSlot(ctx, state, msg)
	case StageCheckInactiveAppointments:
		return e.checkInactiveAppointments(ctx, state)
	case StageWaitingForExit:
		return e.waitForExit(state, msg), nil
	case StageActivateReminders:
		if reply, handled, err := e.activateReminders(ctx, state, msg); handled || err != nil {
			return reply, err
		}
	case StageUpdateReminderPrompt:
		return e.updateReminderPrompt(state, msg), nil
	case StageCollectNewReminderTimes:
		return e.collectReminderTimes(ctx, state, msg)
	}
	return e.generalChat(ctx, state, msg)
}

// normalizeDoctorName lowercases, collapses spaces and drops a leading
// "dr" title.
func normalizeDoctorName(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	for _, prefix := range []string{"dr. ", "dr.", "dr "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}

func (e *Engine) selectDoctor(ctx context.Context, state *State, msg string) (Reply, error) {
	name := normalizeDoctorName(msg)
	for _, doctor := range state.Doctors {
		if name != normalizeDoctorName(doctor.FullName()) {
			continue
		}
		slots, err := e.slots.AvailableSlots(ctx, doctor.ID)
		if err != nil {
			return Reply{}, fmt.Errorf("chatbot: load slots for doctor %s: %w", doctor.ID, err)
		}
		if len(slots) == 0 {
			return e.suggestOtherDoctors(ctx, state, doctor)
		}

		selected := doctor
		state.Stage = StageAwaitingSlotSelection
		state.SelectedDoctor = &selected
		return Reply{Response: fmt.Sprintf(
			"Here are the available time slots for Dr. %s:\n\n%s\n\n"+
				"Please enter the number corresponding to the slot you would like to book. "+
				"You can also type 'reset' or 'start over' at any time to begin a new conversation.",
			doctor.FullName(), e.formatSlots(slots))}, nil
	}
	return Reply{Response: msgDoctorNotFound}, nil
}

func (e *Engine) suggestOtherDoctors(ctx context.Context, state *State, chosen DoctorRef) (Reply, error) {
	noSlots := fmt.Sprintf("Unfortunately, there are no available time slots for Dr. %s at the moment. Let me find other doctors for you.", chosen.FullName())

	hasSlots := make([]bool, len(state.Doctors))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range state.Doctors {
		if doc.ID == chosen.ID {
			continue
		}
		g.Go(func() error {
			slots, err := e.slots.AvailableSlots(gctx, doc.ID)
			if err != nil {
				return fmt.Errorf("chatbot: load slots for doctor %s: %w", doc.ID, err)
			}
			hasSlots[i] = len(slots) > 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Reply{}, err
	}

	var names []string
	for i, doc := range state.Doctors {
		if hasSlots[i] {
			names = append(names, "Dr. "+doc.FullName())
		}
	}
	if len(names) == 0 {
		return Reply{Response: noSlots + "\n\n" +
			"Unfortunately, there are no other doctors available at the moment. " +
			"You can type 'reset' or 'start over' at any time to begin a new conversation."}, nil
	}
	return Reply{Response: fmt.Sprintf(
		"%s\n\nHere are other doctors you can choose from:\n%s\n\n"+
			"Please enter the full name of the doctor you would like to select, or type 'reset' to start over.",
		noSlots, strings.Join(names, "\n"))}, nil
}

func (e *Engine) formatSlots(slots []scheduling.TimeSlot) string {
	lines := make([]string, 0, len(slots))
	for i, slot := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, e.slotRange(slot)))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) slotRange(slot scheduling.TimeSlot) string {
	return slot.StartTime.In(e.location).Format(slotClock) + " - " + slot.EndTime.In(e.location).Format(slotClock)
}

func (e *Engine) selectSlot(ctx context.Context, state *State, msg string) (Reply, error) {
	n, err := strconv.Atoi(msg)
	if err != nil {
		return Reply{Response: msgSlotNotANumber}, nil
	}
	doctor := state.SelectedDoctor
	if doctor == nil {
		e.logger.Warn("slot selection without a selected doctor", "patient_id", state.PatientID)
		state.resetTo(StageGeneral)
		return e.generalChat(ctx, state, msg)
	}

	slots, err := e.slots.AvailableSlots(ctx, doctor.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("chatbot: load slots for doctor %s: %w", doctor.ID, err)
	}
	if n < 1 || n > len(slots) {
		return Reply{Response: msgInvalidSlotNumber}, nil
	}

	booking, err := e.slots.Book(ctx, slots[n-1].ID, state.PatientID)
	if errors.Is(err, scheduling.ErrSlotUnavailable) {
		e.logger.Info("slot taken before booking", "patient_id", state.PatientID, "slot_id", slots[n-1].ID)
		return Reply{Response: msgSlotTaken}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("chatbot: book slot: %w", err)
	}

	state.Stage = StageBookingConfirmed
	state.Doctors = nil
	return Reply{Response: fmt.Sprintf(
		"Great! I've booked your appointment with Dr. %s for %s. You'll receive a confirmation shortly.",
		doctor.FullName(), e.slotRange(booking.Slot))}, nil
}

func (e *Engine) checkInactiveAppointments(ctx context.Context, state *State) (Reply, error) {
	appt, err := e.appointments.LatestInactiveAppointment(ctx, state.PatientID)
	if errors.Is(err, scheduling.ErrAppointmentNotFound) {
		state.Stage = StageWaitingForExit
		return Reply{Response: msgNoPrescriptions}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("chatbot: latest inactive appointment: %w", err)
	}

	list, err := e.prescriptions.ListForPatientDoctor(ctx, appt.PatientID, appt.DoctorID)
	if err != nil {
		return Reply{}, fmt.Errorf("chatbot: list prescriptions: %w", err)
	}
	if len(list) == 0 {
		state.Stage = StageWaitingForExit
		return Reply{Response: msgNoNewPrescriptions}, nil
	}

	var pending []PendingPrescription
	for _, p := range list {
		if !p.IsActive {
			continue
		}
		active, err := e.prescriptions.HasActiveReminders(ctx, p.ID)
		if err != nil {
			return Reply{}, fmt.Errorf("chatbot: check reminders: %w", err)
		}
		if !active {
			pending = append(pending, PendingPrescription{ID: p.ID, Medication: p.MedicationName})
		}
	}
	if len(pending) == 0 {
		state.Stage = StageWaitingForExit
		return Reply{Response: msgAllCovered}, nil
	}

	state.Stage = StageActivateReminders
	state.Prescriptions = pending
	lines := make([]string, 0, len(pending))
	for i, p := range pending {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, p.Medication))
	}
	return Reply{Response: "I found the following prescriptions:\n" + strings.Join(lines, "\n") +
		"\nWould you like to activate reminders for any of them? (Yes/No)"}, nil
}

func (e *Engine) waitForExit(state *State, msg string) Reply {
	if e.vocab.IsExit(msg) {
		state.Stage = StageGeneral
		return Reply{Response: msgExitAck}
	}
	return Reply{Response: msgExitUnknown}
}

func nextPrescriptionPrompt(p PendingPrescription) string {
	return fmt.Sprintf("Next prescription: %s. Would you like to activate reminders for this prescription? (Yes/No)", p.Medication)
}

// activateReminders reports handled=false when the message is neither a yes
// nor a no so that it falls through to general chat.
func (e *Engine) activateReminders(ctx context.Context, state *State, msg string) (Reply, bool, error) {
	switch {
	case e.vocab.IsAffirmative(msg):
		if len(state.Prescriptions) == 0 {
			state.Stage = StageGeneral
			return Reply{Response: msgAllActivated}, true, nil
		}
		current := state.Prescriptions[0]
		state.Prescriptions = state.Prescriptions[1:]

		reminders, err := e.prescriptions.ActivateReminders(ctx, current.ID)
		if err != nil {
			e.logger.Error("failed to activate reminders", "patient_id", state.PatientID, "prescription_id", current.ID, "error", err)
			state.Stage = StageGeneral
			return Reply{Response: fmt.Sprintf("I'm sorry, there was an issue activating your reminders for %s: %s",
				current.Medication, prescriptions.ErrorDetail(err, current.ID))}, true, nil
		}
		times := make([]prescriptions.ClockTime, 0, len(reminders))
		for _, r := range reminders {
			times = append(times, r.ReminderTime)
		}
		if _, err := e.prescriptions.MarkInactive(ctx, current.ID); err != nil {
			e.logger.Warn("failed to mark prescription inactive", "prescription_id", current.ID, "error", err)
		}

		state.Stage = StageUpdateReminderPrompt
		state.PrescriptionID = current.ID
		return Reply{Response: fmt.Sprintf(
			"Reminders for %s have been activated for: %s. The prescription has been marked as inactive. "+
				"Would you like to update the reminder times? (Yes/No)",
			current.Medication, prescriptions.JoinClockTimes(times, true))}, true, nil

	case e.vocab.IsNegative(msg):
		if len(state.Prescriptions) > 0 {
			state.Prescriptions = state.Prescriptions[1:]
		}
		return e.nextPrescriptionOrDone(state), true, nil
	}
	return Reply{}, false, nil
}

func (e *Engine) nextPrescriptionOrDone(state *State) Reply {
	if len(state.Prescriptions) > 0 {
		state.Stage = StageActivateReminders
		return Reply{Response: nextPrescriptionPrompt(state.Prescriptions[0])}
	}
	state.Stage = StageGeneral
	return Reply{Response: msgAllProcessed}
}

func (e *Engine) updateReminderPrompt(state *State, msg string) Reply {
	switch {
	case e.vocab.IsAffirmative(msg):
		state.Stage = StageCollectNewReminderTimes
		return Reply{Response: msgAskNewTimes}
	case e.vocab.IsNegative(msg):
		state.PrescriptionID = ""
		return e.nextPrescriptionOrDone(state)
	}
	return Reply{Response: msgYesOrNo}
}

func (e *Engine) collectReminderTimes(ctx context.Context, state *State, msg string) (Reply, error) {
	times, err := prescriptions.ParseClockTimes(msg)
	if err != nil {
		e.logger.Info("could not parse reminder times", "patient_id", state.PatientID, "input", msg, "error", err)
		return Reply{Response: msgBadTimes}, nil
	}
	if state.PrescriptionID == "" {
		state.Stage = StageGeneral
		return Reply{Response: msgMissingRx}, nil
	}
	if _, err := e.prescriptions.UpdateReminderTimes(ctx, state.PrescriptionID, times); err != nil {
		e.logger.Error("failed to update reminder times", "prescription_id", state.PrescriptionID, "error", err)
		return Reply{Response: msgBadTimes}, nil
	}

	updated := "Reminder times have been updated to: " + prescriptions.JoinClockTimes(times, false) + "."
	state.PrescriptionID = ""
	if len(state.Prescriptions) > 0 {
		state.Stage = StageActivateReminders
		return Reply{Response: updated + "\n\n" + nextPrescriptionPrompt(state.Prescriptions[0])}, nil
	}
	state.Stage = StageGeneral
	return Reply{Response: updated + "\n" + msgAllProcessed}, nil
}

func (e *Engine) complete(ctx context.Context, patientID, msg string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "chatbot.complete")
	defer span.End()

	past, err := e.history.Load(ctx, patientID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chatbot: load history: %w", err)
	}
	user := llm.Message{Role: llm.RoleUser, Content: msg}
	messages := append(append(make([]llm.Message, 0, len(past)+1), past...), user)

	started := time.Now()
	resp, err := e.llm.Complete(ctx, llm.Request{
		Model:       e.model,
		System:      []string{llm.HealthcareSystemPrompt},
		Messages:    messages,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	e.metrics.ObserveLLMLatency("chat", err, time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chatbot: completion: %w", err)
	}
	answer := strings.TrimSpace(resp.Text)

	if err := e.history.Append(ctx, patientID, user, llm.Message{Role: llm.RoleAssistant, Content: answer}); err != nil {
		e.logger.Warn("failed to append llm history", "patient_id", patientID, "error", err)
	}
	return answer, nil
}

func (e *Engine) generalChat(ctx context.Context, state *State, msg string) (Reply, error) {
	if state.Stage == StageInitial || state.Stage == StageBookingConfirmed {
		state.Stage = StageGeneral
	}

	answer, err := e.complete(ctx, state.PatientID, msg)
	if err != nil {
		return Reply{}, err
	}

	intent, err := e.classifier.Classify(ctx, msg, answer)
	if err != nil {
		e.logger.Warn("intent classification failed", "patient_id", state.PatientID, "error", err)
		intent = Intent{Kind: IntentGeneral}
	}
	e.metrics.ObserveIntent(e.classifier.Name(), string(intent.Kind))

	switch intent.Kind {
	case IntentSuggestDoctor:
		return e.suggestDoctors(ctx, state, answer, intent.Specialization), nil
	case IntentCheckPrescriptions:
		state.Stage = StageCheckInactiveAppointments
		return e.checkInactiveAppointments(ctx, state)
	}
	return Reply{Response: answer + msgResetHint}, nil
}

func (e *Engine) suggestDoctors(ctx context.Context, state *State, answer, specialization string) Reply {
	if specialization == "" {
		return Reply{Response: answer + "\n\n" + msgMoreDetails}
	}

	found, err := e.directory.FindBySpecialization(ctx, specialization)
	if err != nil {
		e.logger.Error("failed to look up doctors", "specialization", specialization, "error", err)
		return Reply{Response: answer + " Unfortunately, no doctors are available at the moment for your concerns. Please consult a healthcare professional if needed."}
	}
	if len(found) == 0 {
		return Reply{Response: fmt.Sprintf("%s However, no doctors were found for the specialization: %s.%s", answer, specialization, msgResetHint)}
	}

	refs := make([]DoctorRef, 0, len(found))
	lines := make([]string, 0, len(found))
	for _, d := range found {
		ref := doctorRefOf(d)
		refs = append(refs, ref)
		lines = append(lines, fmt.Sprintf("Dr. %s (%s)", ref.FullName(), ref.Specialization))
	}
	state.Stage = StageAwaitingDoctorSelection
	state.Doctors = refs
	state.SelectedDoctor = nil
	return Reply{
		Response: fmt.Sprintf("%s\n\nHere are the available doctors:\n%s\n\n"+
			"Please enter the full name of the doctor you want to select, or type 'reset' to start a new conversation.",
			answer, strings.Join(lines, "\n")),
		Doctors: refs,
	}
}

var _ DoctorDirectory = (*users.Directory)(nil)
var _ SlotBooker = (*scheduling.Service)(nil)
var _ AppointmentLookup = (*scheduling.Service)(nil)
var _ PrescriptionDesk = (*prescriptions.Service)(nil)
