package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"stockwatch/internal/config"
	"stockwatch/internal/logbus"
	"stockwatch/internal/model"
)

// EmailReporter sends one end-of-run summary of all target results. Like the
// push path it is best-effort only.
type EmailReporter struct {
	cfg config.EmailConfig
	bus *logbus.Bus
}

func NewEmailReporter(cfg config.EmailConfig, bus *logbus.Bus) *EmailReporter {
	return &EmailReporter{cfg: cfg, bus: bus}
}

func (r *EmailReporter) SendRunSummary(ctx context.Context, results []model.Result) error {
	if err := validateEmailConfig(r.cfg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(results) == 0 {
		return errors.New("no results")
	}

	address := strings.TrimSpace(r.cfg.Address)
	host, port, useSSL, err := smtpConfigForAddress(address)
	if err != nil {
		return err
	}

	inStock := 0
	for _, res := range results {
		if res.Available() {
			inStock++
		}
	}
	subject := fmt.Sprintf("Stock check: %d/%d in stock", inStock, len(results))
	htmlBody, textBody, err := buildSummaryBody(results)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(address, "stockwatch"))
	msg.SetHeader("To", address)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(host, port, address, strings.TrimSpace(r.cfg.AuthCode))
	d.SSL = useSSL
	if err := d.DialAndSend(msg); err != nil {
		return err
	}

	r.bus.Log("info", "summary email sent", map[string]any{
		"to":      address,
		"inStock": inStock,
		"total":   len(results),
	})
	return nil
}

func validateEmailConfig(cfg config.EmailConfig) error {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return errors.New("email address is required")
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return errors.New("invalid email address")
	}
	if strings.TrimSpace(cfg.AuthCode) == "" {
		return errors.New("email authCode is required")
	}
	return nil
}

func smtpConfigForAddress(address string) (host string, port int, useSSL bool, err error) {
	parts := strings.Split(strings.TrimSpace(address), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", 0, false, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	switch {
	case domain == "gmail.com" || strings.HasSuffix(domain, ".gmail.com"):
		return "smtp.gmail.com", 587, false, nil
	case domain == "outlook.com" || strings.HasSuffix(domain, ".outlook.com") ||
		domain == "hotmail.com" || strings.HasSuffix(domain, ".hotmail.com") ||
		domain == "live.com" || strings.HasSuffix(domain, ".live.com"):
		return "smtp.office365.com", 587, false, nil
	case domain == "qq.com" || strings.HasSuffix(domain, ".qq.com") ||
		domain == "foxmail.com" || strings.HasSuffix(domain, ".foxmail.com"):
		return "smtp.qq.com", 465, true, nil
	case domain == "163.com" || strings.HasSuffix(domain, ".163.com") ||
		domain == "126.com" || strings.HasSuffix(domain, ".126.com"):
		return "smtp.163.com", 465, true, nil
	default:
		return "smtp." + domain, 465, true, nil
	}
}

var summaryHTMLTpl = template.Must(template.New("summary").Parse(`
<!doctype html>
<html>
  <body style="font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;color:#111827;">
    <h3 style="margin:0 0 4px;">Stock check summary</h3>
    <div style="color:#6b7280;font-size:12px;margin-bottom:12px;">{{ .At }}</div>
    <table cellspacing="0" cellpadding="0" border="0" style="border-collapse:collapse;">
      <thead>
        <tr>
          <th style="padding:6px 12px;text-align:left;font-size:12px;color:#6b7280;border-bottom:1px solid #e5e7eb;">Product</th>
          <th style="padding:6px 12px;text-align:left;font-size:12px;color:#6b7280;border-bottom:1px solid #e5e7eb;">Status</th>
        </tr>
      </thead>
      <tbody>
        {{ range .Rows }}
        <tr>
          <td style="padding:6px 12px;font-size:12px;border-bottom:1px solid #f3f4f6;">{{ .Target }}</td>
          <td style="padding:6px 12px;font-size:12px;border-bottom:1px solid #f3f4f6;">{{ .Status }}</td>
        </tr>
        {{ end }}
      </tbody>
    </table>
  </body>
</html>
`))

func buildSummaryBody(results []model.Result) (htmlBody string, textBody string, err error) {
	type row struct {
		Target string
		Status string
	}

	rows := make([]row, 0, len(results))
	text := new(strings.Builder)
	text.WriteString("Stock check summary\n")
	for _, res := range results {
		status := statusLabel(res)
		rows = append(rows, row{Target: res.Target, Status: status})
		fmt.Fprintf(text, "- %s: %s\n", res.Target, status)
	}

	data := struct {
		At   string
		Rows []row
	}{
		At:   time.Now().Format("2006-01-02 15:04:05"),
		Rows: rows,
	}

	var buf bytes.Buffer
	if err := summaryHTMLTpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return buf.String(), text.String(), nil
}

func statusLabel(res model.Result) string {
	switch res.State {
	case model.StateInStock:
		return "IN STOCK"
	case model.StateSoldOut:
		return "sold out"
	default:
		return "error: " + res.Message
	}
}
