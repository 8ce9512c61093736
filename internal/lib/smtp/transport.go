package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/serene987/vidora/internal/config"
)

// ErrStartTLSUnsupported сервер не предлагает STARTTLS, а он обязателен.
var ErrStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")

// Transport открывает соединения с почтовым сервером из настроек.
type Transport struct {
	cfg  config.SMTP
	dial func(network, addr string) (net.Conn, error)
	log  *slog.Logger
}

// NewTransport создает новый экземпляр Transport. Соединение открывается
// с таймаутом cfg.DialTimeout.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	return &Transport{cfg: cfg, dial: dialer.Dial, log: log}
}

// Dial подключается к серверу, включает STARTTLS, если он требуется настройками,
// и авторизуется, когда задан пользователь.
func (t *Transport) Dial() (Conn, error) {
	const op = "smtp.Transport.Dial"

	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
	conn, err := t.dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", op, addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: handshake: %w", op, err)
	}

	if t.cfg.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			_ = client.Close()
			return nil, fmt.Errorf("%s: %w", op, ErrStartTLSUnsupported)
		}
		tlsConfig := &tls.Config{
			ServerName: t.cfg.SMTPHost,
			MinVersion: tls.VersionTLS12,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%s: starttls: %w", op, err)
		}
	}

	if t.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
		if err = client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%s: auth: %w", op, err)
		}
	}

	t.log.Debug("smtp connection opened", slog.String("addr", addr), slog.Bool("starttls", t.cfg.StartTLS))
	return client, nil
}

// Sender адрес отправителя: From из настроек или имя пользователя SMTP.
func (t *Transport) Sender() string {
	if t.cfg.SMTPFrom != "" {
		return t.cfg.SMTPFrom
	}
	return t.cfg.SMTPUser
}
