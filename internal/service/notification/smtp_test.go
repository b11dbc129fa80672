package notification

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTPServer accepts one session and records the message body. The reply
// to the end of DATA is held back for acceptDelay.
func fakeSMTPServer(t *testing.T, acceptDelay time.Duration) (SMTPConfig, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch strings.ToUpper(strings.SplitN(line, " ", 2)[0]) {
			case "EHLO":
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 AUTH PLAIN")
			case "AUTH":
				_ = tp.PrintfLine("235 2.7.0 accepted")
			case "MAIL", "RCPT":
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				time.Sleep(acceptDelay)
				received <- string(data)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()

	return SMTPConfig{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Sender:   "alerts@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, received
}

func TestSMTPEmailService_NotConfigured(t *testing.T) {
	assert.Nil(t, NewSMTPEmailService(SMTPConfig{Host: "smtp.example.com", Port: 587}))
}

func TestSMTPEmailService_SendText(t *testing.T) {
	cfg, received := fakeSMTPServer(t, 0)
	svc := NewSMTPEmailService(cfg)

	err := svc.SendText(context.Background(), "a@b.com", "hello", "line1\nline2")
	require.NoError(t, err)

	msg := <-received
	assert.True(t, strings.HasPrefix(msg, "From: alerts@example.com\n"), msg)
	assert.Contains(t, msg, "To: a@b.com\n")
	assert.Contains(t, msg, "Subject: hello\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8\n")
	assert.Contains(t, msg, "line1\nline2")
}

func TestSMTPEmailService_FinishesSendAfterContextEnds(t *testing.T) {
	cfg, received := fakeSMTPServer(t, 100*time.Millisecond)
	svc := NewSMTPEmailService(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.SendText(ctx, "a@b.com", "hello", "body")
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Contains(t, msg, "body")
	default:
		t.Fatal("message not delivered")
	}
}

func TestSMTPEmailService_IOTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// never greets
		time.Sleep(time.Second)
	}()

	svc := NewSMTPEmailService(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Sender:   "alerts@example.com",
		Password: "secret",
		Timeout:  50 * time.Millisecond,
	})
	begin := time.Now()
	err = svc.SendText(context.Background(), "a@b.com", "hello", "body")
	assert.Error(t, err)
	assert.Less(t, time.Since(begin), 900*time.Millisecond)
}

func TestSMTPEmailService_CanceledBeforeDial(t *testing.T) {
	cfg, _ := fakeSMTPServer(t, 0)
	svc := NewSMTPEmailService(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.SendText(ctx, "a@b.com", "hello", "body")
	assert.Error(t, err)
}

func TestBuildMessage_SingleLineHeaders(t *testing.T) {
	msg := string(buildMessage("a@b.com", "c@d.com", "hi\r\nBcc: x@y.com", "text/plain", "body", time.Now()))
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Contains(t, msg, "Subject: hi  Bcc: x@y.com\r\n")
}
