package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"placeprep_backend/internal/config"
	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var mailTemplates embed.FS

// Mailer sends the transactional emails of the platform.
type Mailer interface {
	SendVerification(user *model.User) error
	SendPasswordReset(user *model.User) error
	SendContestResult(user *model.User, ts *model.TestSeries, result *ContestResult) error
	SendContestAnnouncement(user *model.User, ts *model.TestSeries, reminder bool) error
}

// MailSender delivers a rendered HTML message.
type MailSender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	Dialer *gomail.Dialer
	From   string
}

func NewSMTPSender(cfg *config.MailConfig) *SMTPSender {
	return &SMTPSender{
		Dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		From:   cfg.From,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.Dialer.DialAndSend(m)
}

// LogSender only records what would have been sent.
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	logger.Log.Info("Mail delivery disabled", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type MailService struct {
	Sender      MailSender
	FrontendURL string
	templates   *template.Template
}

func NewMailService(cfg *config.Config) *MailService {
	var sender MailSender = LogSender{}
	if cfg.Mail.Enabled {
		sender = NewSMTPSender(&cfg.Mail)
	}
	return NewMailServiceWithSender(sender, cfg.Server.FrontendURL)
}

func NewMailServiceWithSender(sender MailSender, frontendURL string) *MailService {
	return &MailService{
		Sender:      sender,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   template.Must(template.ParseFS(mailTemplates, "templates/*.html")),
	}
}

func (m *MailService) send(to, subject, name string, data interface{}) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name, data); err != nil {
		return err
	}
	return m.Sender.Send(to, subject, body.String())
}

func (m *MailService) SendVerification(user *model.User) error {
	return m.send(user.Email, "Verify your PlacePrep account", "verification.html", map[string]interface{}{
		"Name": user.FullName,
		"Link": m.FrontendURL + "/verify-email?token=" + user.VerificationToken,
	})
}

func (m *MailService) SendPasswordReset(user *model.User) error {
	return m.send(user.Email, "Reset your PlacePrep password", "reset_password.html", map[string]interface{}{
		"Name": user.FullName,
		"Link": m.FrontendURL + "/reset-password?token=" + user.ResetToken,
	})
}

func (m *MailService) SendContestResult(user *model.User, ts *model.TestSeries, result *ContestResult) error {
	timeTaken := fmt.Sprint(result.TimeTaken)
	if minutes, ok := result.TimeTaken.(float64); ok {
		timeTaken = fmt.Sprintf("%.2f min", minutes)
	}
	return m.send(user.Email, "Your result: "+ts.Title, "contest_result.html", map[string]interface{}{
		"Name":          user.FullName,
		"Title":         ts.Title,
		"Correct":       result.Correct,
		"Attempted":     result.Attempted,
		"Total":         result.TotalQuestions,
		"Percentage":    result.Percentage,
		"TimeTaken":     timeTaken,
		"AutoSubmitted": result.AutoSubmitted,
		"Link":          fmt.Sprintf("%s/testseries/%d/leaderboard", m.FrontendURL, ts.ID),
	})
}

func (m *MailService) SendContestAnnouncement(user *model.User, ts *model.TestSeries, reminder bool) error {
	subject := "New contest: " + ts.Title
	if reminder {
		subject = "Starting soon: " + ts.Title
	}
	return m.send(user.Email, subject, "contest_announcement.html", map[string]interface{}{
		"Name":        user.FullName,
		"Title":       ts.Title,
		"Description": ts.Description,
		"Start":       ts.StartTime.Format(util.TimeFormat),
		"End":         ts.EndTime.Format(util.TimeFormat),
		"Reminder":    reminder,
		"Link":        fmt.Sprintf("%s/testseries/%d", m.FrontendURL, ts.ID),
	})
}
