package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

// welcomeMessage is split out so the content can be checked without an SMTP relay.
func (s *emailService) welcomeMessage(email string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Sira Qemir")
	m.SetBody("text/html", `
		<h2>Welcome to Sira Qemir!</h2>
		<p>Your account has been created. Sign in to start adding tasks.</p>
	`)
	return m
}

func (s *emailService) SendWelcomeEmail(email string) error {
	if err := s.dialer.DialAndSend(s.welcomeMessage(email)); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}
