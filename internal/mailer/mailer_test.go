package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/logging"
)

func TestNewSMTPMailer_RequiresRelay(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: "587"})
	assert.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: "587", Username: "bot@test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bot@test", m.cfg.From)
}

func TestSMTPMailer_Send(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: "587", Username: "bot@test", Password: "pw", From: "portal@test"})
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m.send = func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "j@x.com", Subject: "Hi", Body: "<p>x</p>", HTML: true}))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, "portal@test", gotFrom)
	assert.Equal(t, []string{"j@x.com"}, gotTo)
	assert.Contains(t, string(gotBody), "Subject: Hi\r\n")
	assert.Contains(t, string(gotBody), "Content-Type: text/html")

	m.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	assert.ErrorContains(t, m.Send(context.Background(), Message{To: "j@x.com"}), "relay down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "j@x.com"}), context.Canceled)
}

// fakeRelay answers one SMTP session with canned replies and hands back the
// DATA payload.
func fakeRelay(t *testing.T) (host, port string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { fmt.Fprintf(conn, "%s\r\n", s) }
		reply("220 relay.test ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				reply("250-relay.test")
				reply("250 AUTH PLAIN")
			case strings.HasPrefix(cmd, "AUTH"):
				reply("235 2.7.0 Authentication successful")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 End data with <CR><LF>.<CR><LF>")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				got <- body.String()
				reply("250 OK queued")
			case cmd == "QUIT":
				reply("221 Bye")
				return
			default:
				reply("502 Command not implemented")
			}
		}
	}()
	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, got
}

func TestSMTPMailer_Delivers(t *testing.T) {
	host, port, data := fakeRelay(t)
	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, Username: "bot@test", Password: "pw", Timeout: 5 * time.Second})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), Message{To: "j@x.com", Subject: "Hi", Body: "hello"}))
	select {
	case body := <-data:
		assert.Contains(t, body, "Subject: Hi\r\n")
		assert.Contains(t, body, "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("relay never received DATA")
	}
}

// stalledRelay accepts connections and never greets.
func stalledRelay(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, c := range conns {
			c.Close()
		}
	})
	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestSMTPMailer_StalledRelayHonoursContext(t *testing.T) {
	host, port := stalledRelay(t)
	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, Username: "bot@test", Password: "pw"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.Error(t, m.Send(ctx, Message{To: "j@x.com", Subject: "Hi"}))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPMailer_StalledRelayHonoursTimeout(t *testing.T) {
	host, port := stalledRelay(t)
	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, Username: "bot@test", Password: "pw", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	assert.Error(t, m.Send(context.Background(), Message{To: "j@x.com", Subject: "Hi"}))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTemplates(t *testing.T) {
	otp := OTPMessage("j@x.com", "123456", 5*time.Minute)
	assert.Contains(t, otp.Body, "123456")
	assert.Contains(t, otp.Body, "5 minutes")
	assert.False(t, otp.HTML)

	reset := ResetMessage("j@x.com", "http://portal.test/reset-password/abc", 15*time.Minute)
	assert.Contains(t, reset.Body, "http://portal.test/reset-password/abc")

	msg, err := BookingConfirmation("j@x.com", BookingDetails{
		FirstName: "<Jo>", Department: "Cardiology", Date: "2026-03-20", Time: "10:30", Hospital: "Test Hospital",
	})
	require.NoError(t, err)
	assert.True(t, msg.HTML)
	assert.Contains(t, msg.Body, "&lt;Jo&gt;")
	assert.NotContains(t, msg.Body, "Doctor:")

	contact, err := ContactConfirmation("j@x.com", ContactDetails{Name: "Jo", Subject: "Parking", Hospital: "Test Hospital"})
	require.NoError(t, err)
	assert.Equal(t, "Message Received", contact.Subject)
	assert.Contains(t, contact.Body, "Parking")
}

func TestLogMailer_KeepsBodyOutOfInfoLogs(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(logging.New(logging.Config{Level: "info", Output: &buf}))
	require.NoError(t, m.Send(context.Background(), Message{To: "j@x.com", Subject: "Your verification code", Body: "code 654321"}))
	assert.Contains(t, buf.String(), "j@x.com")
	assert.NotContains(t, buf.String(), "654321")

	buf.Reset()
	m = NewLogMailer(logging.New(logging.Config{Level: "debug", Output: &buf}))
	require.NoError(t, m.Send(context.Background(), Message{To: "j@x.com", Body: "code 654321"}))
	assert.Contains(t, buf.String(), "654321")
}
