package models

// SupplierRecord is a subcontracted towing/mechanical company.
// The sanitized trading name is the store key; ID is an opaque uuid carried
// for a future key migration and never used for lookups yet.
type SupplierRecord struct {
	ID        string `json:"id,omitempty" redis:"id"`
	Name      string `json:"name" redis:"name"`
	LegalName string `json:"legalName,omitempty" redis:"legalName"`

	Phone         string  `json:"phone,omitempty" redis:"phone"`
	PhoneLandline bool    `json:"phoneLandline,omitempty" redis:"phoneLandline"`
	Mobile        string  `json:"mobile,omitempty" redis:"mobile"`
	Email         string  `json:"email,omitempty" redis:"email"`
	Address       string  `json:"address,omitempty" redis:"address"`
	City          string  `json:"city,omitempty" redis:"city"`
	Postcode      string  `json:"postcode,omitempty" redis:"postcode"`
	Lat           float64 `json:"lat,omitempty" redis:"lat"`
	Lng           float64 `json:"lng,omitempty" redis:"lng"`

	BankName        string `json:"bankName,omitempty" redis:"bankName"`
	BankAccount     string `json:"bankAccount,omitempty" redis:"bankAccount"`
	BankAccountName string `json:"bankAccountName,omitempty" redis:"bankAccountName"`
	GSTNumber       string `json:"gstNumber,omitempty" redis:"gstNumber"`

	// PortalCode is the sole portal credential: a capability token, not a
	// password. Generated once, stable for the life of the record.
	PortalCode string `json:"portalCode,omitempty" redis:"portalCode"`

	JobCount       int64 `json:"jobCount,omitempty" redis:"jobCount"`
	TotalPaidCents int64 `json:"totalPaid,omitempty" redis:"totalPaid"`

	CreatedAt string `json:"createdAt,omitempty" redis:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty" redis:"updatedAt"`
}

// SMSNumber returns the number SMS should go to. Landline mains divert to
// the mobile field.
func (s *SupplierRecord) SMSNumber() string {
	if s.PhoneLandline {
		return s.Mobile
	}
	if s.Phone != "" {
		return s.Phone
	}
	return s.Mobile
}

// SupplierLink is an ephemeral per-dispatch snapshot rendered as a
// single-job mini portal, keyed by a one-time code.
type SupplierLink struct {
	Code           string `json:"code" redis:"code"`
	BookingID      string `json:"bookingId" redis:"bookingId"`
	SupplierName   string `json:"supplierName" redis:"supplierName"`
	CustomerName   string `json:"customerName,omitempty" redis:"customerName"`
	CustomerPhone  string `json:"customerPhone,omitempty" redis:"customerPhone"`
	PickupLocation string `json:"pickupLocation,omitempty" redis:"pickupLocation"`
	DropoffLocation string `json:"dropoffLocation,omitempty" redis:"dropoffLocation"`
	VehicleDesc    string `json:"vehicleDesc,omitempty" redis:"vehicleDesc"`
	Rego           string `json:"rego,omitempty" redis:"rego"`
	SupplierPrice  int64  `json:"supplierPrice,omitempty" redis:"supplierPrice"`
	ETA            string `json:"eta,omitempty" redis:"eta"`
	CreatedAt      string `json:"createdAt,omitempty" redis:"createdAt"`
}
