// Package email delivers submitted reports to the teacher over SMTP.
package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"

	"labreport/api/internal/report"
)

var (
	ErrNotConfigured = errors.New("email not configured")
	ErrNoRecipient   = errors.New("report has no valid teacher email")
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

type submissionData struct {
	Teacher   string
	Student   string
	Title     string
	Date      string
	TimeSpent string
	FileName  string
}

// SendSubmission mails the final PDF to the report's teacher email.
func (s *Service) SendSubmission(r report.Report, pdf []byte, fileName string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	to, err := mail.ParseAddress(strings.TrimSpace(r.TeacherEmail))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNoRecipient, r.TeacherEmail)
	}

	data := submissionData{
		Teacher:   firstNonBlank(r.Teacher, "Teacher"),
		Student:   firstNonBlank(r.StudentName, "A student"),
		Title:     firstNonBlank(r.Title, "Lab Report"),
		Date:      r.Date,
		TimeSpent: report.FormatDuration(r.TimeSpentSeconds),
		FileName:  fileName,
	}
	html, err := renderTemplate(submissionEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render submission template: %w", err)
	}
	subject := fmt.Sprintf("Lab report submitted: %s (%s)", data.Title, data.Student)

	msg, err := s.buildMessage(to.Address, subject, html, fileName, pdf)
	if err != nil {
		return err
	}
	if err := s.send(s.server, s.auth, s.config.From, []string{to.Address}, msg); err != nil {
		return fmt.Errorf("send submission email: %w", err)
	}
	return nil
}

func (s *Service) buildMessage(to, subject, htmlBody, fileName string, pdf []byte) ([]byte, error) {
	from := s.config.From
	if s.config.FromName != "" {
		from = (&mail.Address{Name: s.config.FromName, Address: s.config.From}).String()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}

	attachment, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("application/pdf", map[string]string{"name": fileName})},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": fileName})},
	})
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(pdf)
	for len(encoded) > 76 {
		fmt.Fprintf(attachment, "%s\r\n", encoded[:76])
		encoded = encoded[76:]
	}
	fmt.Fprintf(attachment, "%s\r\n", encoded)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n", writer.Boundary())
	fmt.Fprintf(&msg, "\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func renderTemplate(tmpl string, data any) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

const submissionEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #222; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #124232; padding-bottom: 10px; margin-bottom: 20px; }
        .meta td { padding: 2px 12px 2px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
    </div>

    <p>Dear {{.Teacher}},</p>

    <p>{{.Student}} has submitted a final lab report. The PDF is attached as <strong>{{.FileName}}</strong>.</p>

    <table class="meta">
        <tr><td>Student</td><td>{{.Student}}</td></tr>
        {{if .Date}}<tr><td>Date</td><td>{{.Date}}</td></tr>{{end}}
        <tr><td>Time Spent</td><td>{{.TimeSpent}}</td></tr>
    </table>

    <div class="footer">
        <p>The report is locked and can no longer be edited.</p>
    </div>
</body>
</html>`
