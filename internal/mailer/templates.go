package mailer

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

// OTPMessage carries a registration code.
func OTPMessage(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body: "Your verification code is: " + code +
			"\nThis code expires in " + strconv.Itoa(int(ttl.Minutes())) + " minutes.",
	}
}

// ResetMessage carries a password reset link.
func ResetMessage(to, link string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: "Use the link below to choose a new password:\n" + link +
			"\nThe link expires in " + strconv.Itoa(int(ttl.Minutes())) + " minutes. If you did not ask for a reset, ignore this email.",
	}
}

var bookingTmpl = template.Must(template.New("booking").Parse(`<h2>Hi {{.FirstName}},</h2>
<p>Your appointment has been successfully booked.</p>
<p><strong>Department:</strong> {{.Department}}</p>
{{if .Doctor}}<p><strong>Doctor:</strong> {{.Doctor}}</p>{{end}}
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.Time}}</p>
<br/>
<p>Thank you for choosing <strong>{{.Hospital}}</strong>.</p>`))

// BookingDetails fills the confirmation template.
type BookingDetails struct {
	FirstName  string
	Department string
	Doctor     string
	Date       string
	Time       string
	Hospital   string
}

// BookingConfirmation renders the confirmation email.
func BookingConfirmation(to string, d BookingDetails) (Message, error) {
	var buf bytes.Buffer
	if err := bookingTmpl.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Appointment Confirmation",
		Body:    buf.String(),
		HTML:    true,
	}, nil
}

var contactTmpl = template.Must(template.New("contact").Parse(`<h2>Hi {{.Name}},</h2>
<p>We have received your message about <strong>{{.Subject}}</strong> and will get back to you shortly.</p>
<br/>
<p>Thank you for contacting <strong>{{.Hospital}}</strong>.</p>`))

// ContactDetails fills the contact acknowledgement template.
type ContactDetails struct {
	Name     string
	Subject  string
	Hospital string
}

// ContactConfirmation renders the acknowledgement sent for a contact form
// submission.
func ContactConfirmation(to string, d ContactDetails) (Message, error) {
	var buf bytes.Buffer
	if err := contactTmpl.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Message Received",
		Body:    buf.String(),
		HTML:    true,
	}, nil
}
