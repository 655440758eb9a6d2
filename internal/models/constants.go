package models

const (
	// BookingIDPrefix marks platform-generated booking IDs.
	BookingIDPrefix = "HT-"

	// PortalCodeLength is the supplier portal token length.
	PortalCodeLength = 12

	// PortalCodeAlphabet excludes visually confusable characters
	// (i, l, o, 0, 1). 31 symbols.
	PortalCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

	// SupplierLinkTTLDays bounds the lifetime of per-dispatch snapshots.
	SupplierLinkTTLDays = 30

	// WorkerQueueSize is the in-memory notification queue capacity.
	WorkerQueueSize = 128

	// FallbackPhone is shown to customers on any unrecoverable error.
	FallbackPhone = "0800 769 000"
)

// Payment methods accepted on a job.
const (
	PaymentCash    = "cash"
	PaymentInvoice = "invoice"
	PaymentPrepaid = "prepaid"
	PaymentAccount = "account"
)
