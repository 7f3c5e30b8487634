package mailer

import (
	"fmt"
	"os"
	"strconv"

	"github.com/clinicore/hmis-server/cmd/models"
	"gopkg.in/gomail.v2"
)

// SendBookingNotice emails a doctor about a fresh booking. A no-op when SMTP
// is not configured, so local runs and tests stay offline.
func SendBookingNotice(email string, appt *models.Appointment) error {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return nil
	}
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("New appointment %s", appt.Reference))
	m.SetBody("text/plain", fmt.Sprintf(
		"%s (%s) booked an appointment on %s at %s.",
		appt.PatientName, appt.PatientPhone,
		appt.Date.Format("2006-01-02"), appt.Time,
	))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
