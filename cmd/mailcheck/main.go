// cmd/mailcheck/main.go
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/pkg/email"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

// Sends a sample low-stock alert through the configured provider so the
// mail settings can be checked before the first real alert fires.
func main() {
	to := flag.String("to", "", "override ALERT_EMAIL_TO with a single address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *to != "" {
		cfg.Email.AlertRecipients = []string{*to}
	}
	if len(cfg.Email.AlertRecipients) == 0 {
		log.Fatal("No recipients: set ALERT_EMAIL_TO or pass -to")
	}

	mailer := email.NewService(cfg, logger.New(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Email.SendTimeout+5*time.Second)
	defer cancel()

	err = mailer.SendStockAlert(ctx, email.StockAlertData{
		Brand:        "Sample",
		Model:        "Runner",
		CurrentStock: cfg.Sales.LowStockThreshold,
		Threshold:    cfg.Sales.LowStockThreshold,
		Type:         email.EmailTypeLowStock,
		RaisedAt:     time.Now(),
	})
	if err != nil {
		log.Fatalf("Test email failed via %s: %v", cfg.Email.Provider, err)
	}
	log.Printf("Test email sent via %s to %v", cfg.Email.Provider, cfg.Email.AlertRecipients)
}
