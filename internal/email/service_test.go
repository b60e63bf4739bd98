package email

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/api/internal/report"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{name: "empty config", config: Config{}, expected: false},
		{name: "missing host", config: Config{Port: "587", From: "lab@example.com"}, expected: false},
		{name: "missing port", config: Config{Host: "smtp.example.com", From: "lab@example.com"}, expected: false},
		{name: "missing from", config: Config{Host: "smtp.example.com", Port: "587"}, expected: false},
		{name: "fully configured", config: Config{Host: "smtp.example.com", Port: "587", From: "lab@example.com"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewService(tt.config).IsConfigured())
		})
	}
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newCapturingService(t *testing.T) (*Service, *capturedMail) {
	t.Helper()
	svc := NewService(Config{
		Host:     "smtp.example.com",
		Port:     "587",
		From:     "notebook@example.com",
		FromName: "Lab Notebook",
	})
	captured := &capturedMail{}
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = msg
		return nil
	}
	return svc, captured
}

func TestSendSubmission(t *testing.T) {
	svc, captured := newCapturingService(t)
	r := report.NewReport("rep_1")
	r.Teacher = "Ms. Lee"
	r.TeacherEmail = " lee@school.test "
	r.Title = "Density of Water"
	r.StudentName = "Sam <script>"
	r.TimeSpentSeconds = 125
	pdf := bytes.Repeat([]byte("%PDF-1.4 "), 20)

	require.NoError(t, svc.SendSubmission(r, pdf, "density-of-water.pdf"))
	assert.Equal(t, "smtp.example.com:587", captured.addr)
	assert.Equal(t, "notebook@example.com", captured.from)
	assert.Equal(t, []string{"lee@school.test"}, captured.to)

	msg, err := mail.ReadMessage(bytes.NewReader(captured.msg))
	require.NoError(t, err)
	assert.Contains(t, msg.Header.Get("From"), "Lab Notebook")
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Lab report submitted: Density of Water (Sam <script>)", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	htmlPart, err := reader.NextPart()
	require.NoError(t, err)
	html, _ := io.ReadAll(htmlPart)
	assert.Contains(t, string(html), "Dear Ms. Lee")
	assert.Contains(t, string(html), "Sam &lt;script&gt;")
	assert.Contains(t, string(html), "2m 5s")

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "density-of-water.pdf", attachment.FileName())
	encoded, _ := io.ReadAll(attachment)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)
}

func TestSendSubmissionErrors(t *testing.T) {
	r := report.NewReport("rep_1")
	r.TeacherEmail = "not an address"

	assert.ErrorIs(t, NewService(Config{}).SendSubmission(r, []byte("x"), "a.pdf"), ErrNotConfigured)

	svc, _ := newCapturingService(t)
	assert.ErrorIs(t, svc.SendSubmission(r, []byte("x"), "a.pdf"), ErrNoRecipient)
}
