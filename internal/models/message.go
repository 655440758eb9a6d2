package models

import "time"

// Message senders. Supplier messages carry the sanitized name after the
// colon, e.g. "supplier:Joes Towing".
const (
	MessageFromCustomer       = "customer"
	MessageFromSupplierPrefix = "supplier:"
	MessageFromOfficeCustomer = "office:customer"
	MessageFromOfficeSupplier = "office:supplier"
)

// Message is one chat entry on a job. Messages are never edited or deleted.
type Message struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewMessage stamps a message with the current UTC time.
func NewMessage(from, text string) Message {
	return Message{
		From:      from,
		Message:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
