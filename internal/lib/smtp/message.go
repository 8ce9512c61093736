package smtp

import (
	"bytes"
	"errors"
	"mime"
	"strings"
	"time"
)

// ErrNoRecipients письмо без получателей.
var ErrNoRecipients = errors.New("message has no recipients")

// Message текстовое письмо.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	Date    time.Time
}

// Bytes собирает письмо в формате RFC 5322. Тема кодируется как
// encoded-word, тело передаётся как UTF-8 с CRLF.
func (m Message) Bytes() ([]byte, error) {
	if len(m.To) == 0 {
		return nil, ErrNoRecipients
	}
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("UTF-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes(), nil
}
