// internal/domain/inventory/notifier.go
package inventory

import (
	"context"

	"github.com/your-org/shoe-pos/internal/pkg/email"
)

// AlertNotice is what a notifier receives when a new alert opens
type AlertNotice struct {
	Alert        StockAlert
	Brand        string
	Model        string
	CurrentStock int
	Threshold    int
}

// AlertNotifier is told about newly raised stock alerts
type AlertNotifier interface {
	NotifyStockAlert(ctx context.Context, notice AlertNotice) error
}

// EmailNotifier mails new alerts to the store's alert recipients
type EmailNotifier struct {
	mailer *email.Service
}

func NewEmailNotifier(mailer *email.Service) *EmailNotifier {
	return &EmailNotifier{mailer: mailer}
}

func (n *EmailNotifier) NotifyStockAlert(ctx context.Context, notice AlertNotice) error {
	kind := email.EmailTypeLowStock
	if notice.Alert.AlertType == AlertTypeOutOfStock {
		kind = email.EmailTypeOutOfStock
	}
	return n.mailer.SendStockAlert(ctx, email.StockAlertData{
		ShoeID:       notice.Alert.ShoeID,
		Brand:        notice.Brand,
		Model:        notice.Model,
		CurrentStock: notice.CurrentStock,
		Threshold:    notice.Threshold,
		Type:         kind,
		RaisedAt:     notice.Alert.CreatedAt,
	})
}
