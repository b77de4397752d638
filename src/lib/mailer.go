package lib

import (
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

type SendMailInput struct {
	From    string
	To      string
	Subject string
	Body    string
}

// SendMail delivers a plain-text message over SMTP. Callers run it from the
// worker queue; delivery failures are logged there and never reach the
// booking or scan path.
func SendMail(input *SendMailInput) error {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	msg := mail.NewMsg()
	if err := msg.From(input.From); err != nil {
		return err
	}
	if err := msg.To(input.To); err != nil {
		return err
	}
	msg.Subject(input.Subject)
	msg.SetBodyString(mail.TypeTextPlain, input.Body)

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(os.Getenv("SMTP_USER")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
	)
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}
