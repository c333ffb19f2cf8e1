// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeLowStock   EmailType = "low_stock"
	EmailTypeOutOfStock EmailType = "out_of_stock"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content,omitempty"`
	Type        EmailType `json:"type"`
}

// StockAlertData fills the stock alert template
type StockAlertData struct {
	StoreName    string
	ShoeID       uint
	Brand        string
	Model        string
	CurrentStock int
	Threshold    int
	Type         EmailType
	RaisedAt     time.Time
}

// Title is the headline used for both subject and body
func (d StockAlertData) Title() string {
	if d.Type == EmailTypeOutOfStock {
		return d.Brand + " " + d.Model + " is out of stock"
	}
	return d.Brand + " " + d.Model + " is running low"
}
