package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"sync"

	"contextguard/internal/config"
)

// EmailSender defines the interface for sending emails
type EmailSender interface {
	SendVerificationEmail(to, name, token string) error
	SendLoginVerificationEmail(to, name, approveLink, blockLink string) error
}

// Service implements the EmailSender interface
type Service struct {
	config config.EmailConfig
	client *smtp.Client
	mu     sync.Mutex
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		config: cfg,
		client: nil,
	}
}

// dialSMTP establishes an SMTP connection
func (s *Service) dialSMTP() (*smtp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reuse existing connection if it's still alive
	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return s.client, nil
		}
		s.client.Close()
		s.client = nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	if err := client.Auth(smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to authenticate with SMTP server: %w", err)
	}

	s.client = client
	return client, nil
}

// sendMail sends an email using a pooled SMTP connection
func (s *Service) sendMail(to []string, msg []byte) error {
	client, err := s.dialSMTP()
	if err != nil {
		return err
	}

	if err := client.Mail(s.config.SMTPUsername); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message writer: %w", err)
	}

	return nil
}

// Close closes the SMTP connection
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.client.Quit()
		s.client = nil
		return err
	}
	return nil
}

func (s *Service) checkConfig() error {
	if s.config.SMTPHost == "" || s.config.SMTPPort == 0 || s.config.SMTPUsername == "" ||
		s.config.SMTPPassword == "" || s.config.FromAddress == "" || s.config.AppURL == "" {
		return fmt.Errorf("incomplete email configuration")
	}
	return nil
}

func (s *Service) compose(to, subject, body string) []byte {
	msg := fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s", to, s.config.FromAddress, subject, body)
	return []byte(msg)
}

func (s *Service) SendVerificationEmail(to, name, token string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	subject := "Verify Your Email Address"
	verificationURL := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.config.AppURL, token)

	tmpl, err := template.New("verification").Parse(`
		<h2>Hello {{.Name}},</h2>
		<p>Please verify your email address by clicking the link below:</p>
		<p><a href="{{.URL}}">Verify Email Address</a></p>
		<p>This link will expire in 24 hours.</p>
		<p>If you did not create an account, no further action is required.</p>
	`)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, map[string]string{
		"Name": name,
		"URL":  verificationURL,
	}); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	log.Printf("Sending verification email to %s via SMTP server %s:%d", to, s.config.SMTPHost, s.config.SMTPPort)
	if err := s.sendMail([]string{to}, s.compose(to, subject, body.String())); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *Service) SendLoginVerificationEmail(to, name, approveLink, blockLink string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	subject := "Action Required: Verify New Login"

	tmpl, err := template.New("loginVerification").Parse(`
		<h2>New login attempt detected</h2>
		<p>Dear {{.Name}},</p>
		<p>If this was you, please click the button below to verify your login:</p>
		<p><a href="{{.ApproveLink}}">Verify Login</a></p>
		<p>If you believe this was an unauthorized attempt, please click the button below to block this login:</p>
		<p><a href="{{.BlockLink}}">Block Login</a></p>
		<p>Please verify that this login was authorized. If you have any questions or concerns, please contact our support team.</p>
	`)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, map[string]string{
		"Name":        name,
		"ApproveLink": approveLink,
		"BlockLink":   blockLink,
	}); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	log.Printf("Sending login verification email to %s via SMTP server %s:%d", to, s.config.SMTPHost, s.config.SMTPPort)
	if err := s.sendMail([]string{to}, s.compose(to, subject, body.String())); err != nil {
		return fmt.Errorf("failed to send login verification email: %w", err)
	}
	return nil
}
