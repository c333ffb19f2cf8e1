// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
)

// Service sends store notifications through the configured provider
type Service struct {
	config    config.EmailConfig
	storeName string
	templates map[EmailType]*template.Template
	client    *http.Client
	log       *logrus.Logger
}

// NewService creates a new email service
func NewService(cfg *config.Config, log *logrus.Logger) *Service {
	timeout := cfg.Email.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		config:    cfg.Email,
		storeName: cfg.App.Name,
		templates: map[EmailType]*template.Template{
			EmailTypeLowStock:   stockAlertTemplate,
			EmailTypeOutOfStock: stockAlertTemplate,
		},
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Send delivers email using the configured provider
func (s *Service) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(ctx, email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendStockAlert mails a low or out-of-stock notice to the alert recipients
func (s *Service) SendStockAlert(ctx context.Context, data StockAlertData) error {
	if data.StoreName == "" {
		data.StoreName = s.storeName
	}
	html, err := s.render(data.Type, data)
	if err != nil {
		return err
	}

	err = s.Send(ctx, &Email{
		To:          s.config.AlertRecipients,
		Subject:     fmt.Sprintf("[%s] %s", data.StoreName, data.Title()),
		HTMLContent: html,
		Type:        data.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to send stock alert for shoe %d: %w", data.ShoeID, err)
	}

	s.log.WithFields(logrus.Fields{
		"shoe_id":    data.ShoeID,
		"type":       data.Type,
		"recipients": len(s.config.AlertRecipients),
	}).Info("stock alert email sent")
	return nil
}

func (s *Service) render(t EmailType, data interface{}) (string, error) {
	tmpl, ok := s.templates[t]
	if !ok {
		return "", fmt.Errorf("template %s not found", t)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t, err)
	}
	return buf.String(), nil
}

func (s *Service) fromAddress() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

var stockAlertTemplate = template.Must(template.New("stock_alert").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.StoreName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.Title}}</h1>
        <p>{{.Brand}} {{.Model}} (item #{{.ShoeID}}) has {{.CurrentStock}} left in stock.</p>
        {{if eq .Type "low_stock"}}<p>The low-stock threshold is {{.Threshold}}.</p>{{end}}
        <p>Raised {{.RaisedAt.Format "2006-01-02 15:04 MST"}}.</p>
        <hr>
        <p style="font-size: 12px; color: #666;">{{.StoreName}} inventory</p>
    </div>
</body>
</html>`))
