package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// People resolves the parties of a booking.
type People interface {
	GetPatient(ctx context.Context, id string) (*users.Patient, error)
	GetDoctor(ctx context.Context, id string) (*users.Doctor, error)
}

// BookingNotifier emails patients when an appointment is booked. Patients
// whose username is not an email address are skipped.
type BookingNotifier struct {
	email    EmailSender
	people   People
	location *time.Location
	logger   *logging.Logger
}

func NewBookingNotifier(email EmailSender, people People, location *time.Location, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &BookingNotifier{email: email, people: people, location: location, logger: logger}
}

func (n *BookingNotifier) BookingConfirmed(ctx context.Context, b scheduling.Booking) error {
	if n.email == nil || n.people == nil {
		return nil
	}
	patient, err := n.people.GetPatient(ctx, b.Appointment.PatientID)
	if err != nil {
		return fmt.Errorf("notify: load patient: %w", err)
	}
	addr, err := mail.ParseAddress(patient.Username)
	if err != nil || !strings.EqualFold(addr.Address, patient.Username) {
		n.logger.Debug("notify: patient username is not an email, skipping confirmation", "patient_id", patient.ID)
		return nil
	}
	doctor, err := n.people.GetDoctor(ctx, b.Appointment.DoctorID)
	if err != nil {
		return fmt.Errorf("notify: load doctor: %w", err)
	}

	msg := BookingConfirmationEmail(*patient, *doctor, b.Slot, n.location)
	msg.To = addr.Address
	msg.Reference = b.Appointment.ID
	if err := n.email.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Info("booking confirmation sent", "appointment_id", b.Appointment.ID, "patient_id", patient.ID)
	return nil
}

// BookingConfirmationEmail renders the confirmation message without a
// recipient address.
func BookingConfirmationEmail(patient users.Patient, doctor users.Doctor, slot scheduling.TimeSlot, loc *time.Location) EmailMessage {
	start := slot.StartTime.In(loc)
	end := slot.EndTime.In(loc)
	when := fmt.Sprintf("%s, %s - %s", start.Format("Monday, January 2, 2006"), start.Format("03:04 PM"), end.Format("03:04 PM MST"))

	name := strings.TrimSpace(patient.FirstName + " " + patient.LastName)
	greeting := "Hello,"
	if name != "" {
		greeting = "Hello " + name + ","
	}

	var body strings.Builder
	body.WriteString(greeting + "\n\n")
	fmt.Fprintf(&body, "Your appointment with Dr. %s (%s) is confirmed for %s.\n\n", doctor.FullName(), doctor.Specialization, when)
	body.WriteString("If you need to reschedule, reply to the assistant or contact the clinic.\n")

	return EmailMessage{
		ToName:   name,
		Subject:  fmt.Sprintf("Appointment confirmed with Dr. %s", doctor.FullName()),
		Body:     body.String(),
		Category: CategoryBookingConfirmation,
	}
}

var _ scheduling.Notifier = (*BookingNotifier)(nil)
