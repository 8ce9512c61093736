// Package smtp отправляет письма через SMTP-сервер.
package smtp

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/serene987/vidora/internal/lib/sl"
)

// Conn открытое соединение с почтовым сервером.
type Conn interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает соединения и знает адрес отправителя.
type Dialer interface {
	Dial() (Conn, error)
	Sender() string
}

// Deliver отправляет одно письмо через новое соединение.
// Пустой msg.From заменяется адресом отправителя из d.
func Deliver(d Dialer, msg Message, log *slog.Logger) error {
	const op = "smtp.Deliver"

	if msg.From == "" {
		msg.From = d.Sender()
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	conn, err := d.Dial()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := conn.Mail(msg.From); err != nil {
		log.Error("MAIL FROM rejected", slog.String("from", msg.From), sl.Err(err))
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	for _, addr := range msg.To {
		if err := conn.Rcpt(addr); err != nil {
			log.Error("RCPT TO rejected", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: rcpt to: %w", op, err)
		}
	}

	wc, err := conn.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(raw); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close body: %w", op, err)
	}
	if err = conn.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}
