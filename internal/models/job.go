package models

import "time"

// JobRecord is one service engagement, keyed by BookingID.
// Rego is a denormalized lookup aid only: multiple jobs may share a plate.
type JobRecord struct {
	BookingID string `json:"bookingId" redis:"bookingId"`

	CustomerName  string `json:"customerName,omitempty" redis:"customerName"`
	CustomerPhone string `json:"customerPhone,omitempty" redis:"customerPhone"`
	CustomerEmail string `json:"customerEmail,omitempty" redis:"customerEmail"`

	VehicleMake  string `json:"vehicleMake,omitempty" redis:"vehicleMake"`
	VehicleModel string `json:"vehicleModel,omitempty" redis:"vehicleModel"`
	VehicleColor string `json:"vehicleColor,omitempty" redis:"vehicleColor"`
	VehicleYear  string `json:"vehicleYear,omitempty" redis:"vehicleYear"`
	Rego         string `json:"rego,omitempty" redis:"rego"`

	PickupLocation  string `json:"pickupLocation,omitempty" redis:"pickupLocation"`
	DropoffLocation string `json:"dropoffLocation,omitempty" redis:"dropoffLocation"`

	// PriceCents and SupplierPriceCents are integer cents, never floats.
	PriceCents    int64  `json:"price,omitempty" redis:"price"`
	ETA           string `json:"eta,omitempty" redis:"eta"`
	PaymentMethod string `json:"paymentMethod,omitempty" redis:"paymentMethod"`

	SupplierName          string `json:"supplierName,omitempty" redis:"supplierName"`
	SupplierPhone         string `json:"supplierPhone,omitempty" redis:"supplierPhone"`
	SupplierEmail         string `json:"supplierEmail,omitempty" redis:"supplierEmail"`
	SupplierAddress       string `json:"supplierAddress,omitempty" redis:"supplierAddress"`
	SupplierPriceCents    int64  `json:"supplierPrice,omitempty" redis:"supplierPrice"`
	SupplierInvoiceRef    string `json:"supplierInvoiceRef,omitempty" redis:"supplierInvoiceRef"`
	SupplierInvoiceAmount int64  `json:"supplierInvoiceAmount,omitempty" redis:"supplierInvoiceAmount"`
	SupplierInvoiceLink   string `json:"supplierInvoiceLink,omitempty" redis:"supplierInvoiceLink"`

	SupplierPaymentApproved bool   `json:"supplierPaymentApproved,omitempty" redis:"supplierPaymentApproved"`
	SupplierApprovedAmount  int64  `json:"supplierApprovedAmount,omitempty" redis:"supplierApprovedAmount"`
	SupplierApprovedAt      string `json:"supplierApprovedAt,omitempty" redis:"supplierApprovedAt"`
	SupplierPaidAt          string `json:"supplierPaidAt,omitempty" redis:"supplierPaidAt"`

	Status    Status `json:"status" redis:"status"`
	CreatedAt string `json:"createdAt,omitempty" redis:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty" redis:"updatedAt"`
}

// HasContact reports whether at least one customer contact channel exists.
// Notification fan-out must not be attempted without one.
func (j *JobRecord) HasContact() bool {
	return j.CustomerPhone != "" || j.CustomerEmail != ""
}

// HistoryEvent is one append-only entry in a job's history log.
type HistoryEvent struct {
	Action    string            `json:"action"`
	Timestamp string            `json:"timestamp"`
	By        string            `json:"by,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// NewHistoryEvent stamps an event with the current time in ISO-8601.
func NewHistoryEvent(action, by string, data map[string]string) HistoryEvent {
	return HistoryEvent{
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		By:        by,
		Data:      data,
	}
}
