package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const emailAttempts = 2

// emailRetryPause is a var so tests can shrink it.
var emailRetryPause = 10 * time.Second

// sendReportEmail delivers a materialized report: HTML body with the
// statistics PNG inline, the xlsx and PNG attached. Transport failures are
// retried with their own bound; delivery never re-runs the fetch stage.
func sendReportEmail(cfg Config, kind ReportKind, xlsxPath, pngPath string) error {
	msg, err := buildReportEmail(cfg, kind, xlsxPath, pngPath)
	if err != nil {
		return fmt.Errorf("building report email: %w", err)
	}

	recipients := append(append([]string{}, cfg.EmailTo...), cfg.EmailCC...)
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	auth := loginAuth{username: cfg.EmailFrom, password: cfg.EmailPassword}

	var lastErr error
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		lastErr = smtp.SendMail(addr, auth, cfg.EmailFrom, recipients, msg)
		if lastErr == nil {
			log.Printf("email sent kind=%s to=%d cc=%d", kind, len(cfg.EmailTo), len(cfg.EmailCC))
			return nil
		}
		log.Printf("email send attempt=%d error: %v", attempt, lastErr)
		if attempt < emailAttempts {
			time.Sleep(emailRetryPause)
		}
	}
	return fmt.Errorf("sending report email: %w", lastErr)
}

func buildReportEmail(cfg Config, kind ReportKind, xlsxPath, pngPath string) ([]byte, error) {
	xlsxData, err := os.ReadFile(xlsxPath)
	if err != nil {
		return nil, err
	}
	pngData, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, err
	}

	const mixedBoundary = "kaspibot-mixed"
	const relatedBoundary = "kaspibot-related"

	var out strings.Builder
	out.WriteString(fmt.Sprintf("From: %s <%s>\r\n", cfg.EmailFromName, cfg.EmailFrom))
	out.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(cfg.EmailTo, ", ")))
	if len(cfg.EmailCC) > 0 {
		out.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(cfg.EmailCC, ", ")))
	}
	out.WriteString(fmt.Sprintf("Subject: %s\r\n", kind.EmailSubject()))
	out.WriteString("MIME-Version: 1.0\r\n")
	out.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary))

	// HTML body with the statistics table inline.
	out.WriteString("--" + mixedBoundary + "\r\n")
	out.WriteString(fmt.Sprintf("Content-Type: multipart/related; boundary=%q\r\n\r\n", relatedBoundary))

	out.WriteString("--" + relatedBoundary + "\r\n")
	out.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	out.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	out.WriteString(emailBodyHTML(kind.EmailBody()))
	out.WriteString("\r\n")

	out.WriteString("--" + relatedBoundary + "\r\n")
	out.WriteString("Content-Type: image/png\r\n")
	out.WriteString("Content-Transfer-Encoding: base64\r\n")
	out.WriteString("Content-ID: <statistics.png>\r\n")
	out.WriteString("Content-Disposition: inline; filename=\"statistics.png\"\r\n\r\n")
	writeBase64(&out, pngData)
	out.WriteString("--" + relatedBoundary + "--\r\n")

	// Attachments.
	out.WriteString("--" + mixedBoundary + "\r\n")
	out.WriteString("Content-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n")
	out.WriteString("Content-Transfer-Encoding: base64\r\n")
	out.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(xlsxPath)))
	writeBase64(&out, xlsxData)

	out.WriteString("--" + mixedBoundary + "\r\n")
	out.WriteString("Content-Type: image/png\r\n")
	out.WriteString("Content-Transfer-Encoding: base64\r\n")
	out.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(pngPath)))
	writeBase64(&out, pngData)

	out.WriteString("--" + mixedBoundary + "--\r\n")
	return []byte(out.String()), nil
}

func emailBodyHTML(body string) string {
	paragraphs := strings.ReplaceAll(body, "\n", "<br>\n")
	return `<html><body style="font-family: Calibri, Arial, sans-serif; font-size: 11pt;">` +
		"<p>" + paragraphs + "</p>" +
		`<img src="cid:statistics.png" alt="Statistics Table" style="width: 100%; max-width: 500px;" />` +
		"<p>С уважением,</p></body></html>"
}

// writeBase64 encodes data in 76-column lines with CRLF terminators.
func writeBase64(out *strings.Builder, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		out.WriteString(encoded[:76])
		out.WriteString("\r\n")
		encoded = encoded[76:]
	}
	out.WriteString(encoded)
	out.WriteString("\r\n")
}

// loginAuth implements the AUTH LOGIN mechanism; Office 365 does not offer
// PLAIN, which is all net/smtp ships with.
type loginAuth struct {
	username string
	password string
}

func (a loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("LOGIN auth requires a TLS connection")
	}
	return "LOGIN", nil, nil
}

func (a loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.TrimSpace(strings.ToLower(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unexpected server challenge %q", fromServer)
	}
}
