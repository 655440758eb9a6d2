package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"
	"github.com/eek-site/eek-sub001/internal/events"
	"github.com/eek-site/eek-sub001/internal/maps"
	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/notify"
	"github.com/eek-site/eek-sub001/internal/repository"

	"github.com/rs/zerolog"
)

// Validation and authorization sentinels. Handlers map these to 400/403.
var (
	ErrPickupRequired  = errors.New("pickup location is required")
	ErrContactRequired = errors.New("at least one contact method is required")
	ErrForbidden       = errors.New("job does not belong to this supplier")
)

// BookingService drives the job lifecycle: intake, payment confirmation,
// supplier dispatch and supplier payment approval. Notification, geocode
// and stat-counter failures never roll back the primary mutation.
type BookingService struct {
	jobs      *repository.JobStore
	suppliers *repository.SupplierDirectory
	notifier  *notify.Notifier
	geo       *maps.Client
	bus       *events.EventBus
	links     config.LinksConfig
	logger    *zerolog.Logger
}

func NewBookingService(jobs *repository.JobStore, suppliers *repository.SupplierDirectory, notifier *notify.Notifier, geo *maps.Client, bus *events.EventBus, links config.LinksConfig, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		jobs:      jobs,
		suppliers: suppliers,
		notifier:  notifier,
		geo:       geo,
		bus:       bus,
		links:     links,
		logger:    logger,
	}
}

// BookingResult is the intake response.
type BookingResult struct {
	BookingID   string        `json:"bookingId"`
	Status      models.Status `json:"status"`
	PaymentLink string        `json:"paymentLink,omitempty"`
}

// CreateBooking validates and stores a new pending job, then notifies the
// office. The customer pays via the returned payment link.
func (s *BookingService) CreateBooking(ctx context.Context, job *models.JobRecord) (*BookingResult, error) {
	if job.PickupLocation == "" {
		return nil, ErrPickupRequired
	}
	if !job.HasContact() {
		return nil, ErrContactRequired
	}

	job.Status = models.StatusPending
	id, err := s.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	if err := s.jobs.AppendHistory(ctx, id, models.NewHistoryEvent("booking_created", "customer", map[string]string{
		"pickup": job.PickupLocation,
	})); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", id).Msg("history append failed")
	}

	paymentLink := s.links.PublicBaseURL + "/pay/" + id

	data := dataFromJob(job)
	data.PaymentLink = paymentLink
	s.notifier.Notify(ctx, notify.EventBookingLinkCreated, data)

	s.publishJobEvent(events.EventJobCreated, job, "customer")

	return &BookingResult{BookingID: id, Status: job.Status, PaymentLink: paymentLink}, nil
}

// ConfirmRequest carries a payment confirmation. Job holds optional field
// updates collected on the payment page; nil means confirm as stored.
type ConfirmRequest struct {
	BookingID     string
	PaymentMethod string
	PriceCents    int64
	Job           *models.JobRecord
}

// ConfirmResult reports the post-payment state and per-channel
// notification outcomes.
type ConfirmResult struct {
	BookingID     string        `json:"bookingId"`
	Status        models.Status `json:"status"`
	Notifications notify.Result `json:"notifications"`
}

// ConfirmBooking records a completed payment. The job moves to booked, or
// to awaiting_supplier when a supplier is already known from a previous
// job on the same plate. A job with a supplier assigned is auto-forwarded.
func (s *BookingService) ConfirmBooking(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.BookingID == "" {
		return nil, fmt.Errorf("booking id is required")
	}

	job, err := s.jobs.GetJob(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		// Confirmation can arrive for a booking created outside the intake
		// flow. Create the record on the fly.
		if req.Job == nil {
			return nil, repository.ErrNotFound
		}
		job = req.Job
		job.BookingID = req.BookingID
		if _, err := s.jobs.CreateJob(ctx, job); err != nil {
			return nil, err
		}
	} else if req.Job != nil {
		mergeJobFields(job, req.Job)
	}

	if req.PaymentMethod != "" {
		job.PaymentMethod = req.PaymentMethod
	}
	if req.PriceCents > 0 {
		job.PriceCents = req.PriceCents
	}

	target := models.StatusBooked
	if job.SupplierName == "" && job.Rego != "" {
		if name := s.supplierFromPriorJobs(ctx, job); name != "" {
			job.SupplierName = name
			target = models.StatusAwaitingSupplier
		}
	}
	if err := models.Transition(job, target); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"status":        string(job.Status),
		"paymentMethod": job.PaymentMethod,
		"price":         job.PriceCents,
	}
	if job.SupplierName != "" {
		fields["supplierName"] = job.SupplierName
	}
	if req.Job != nil {
		addJobFields(fields, req.Job)
	}
	if err := s.jobs.UpdateJob(ctx, job.BookingID, fields); err != nil {
		return nil, err
	}

	if err := s.jobs.AppendHistory(ctx, job.BookingID, models.NewHistoryEvent("payment_completed", "customer", map[string]string{
		"method": job.PaymentMethod,
		"amount": fmt.Sprintf("%d", job.PriceCents),
	})); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", job.BookingID).Msg("history append failed")
	}

	result := s.notifier.Notify(ctx, notify.EventPaymentCompleted, dataFromJob(job),
		notify.ChannelCustomerSMS, notify.ChannelCustomerEmail)

	s.publishJobEvent(events.EventPaymentCompleted, job, "customer")

	// A supplier already on the record means the office pre-assigned one;
	// forward the job without waiting for a dispatcher.
	if job.SupplierName != "" && target == models.StatusBooked {
		if _, err := s.DispatchJob(ctx, DispatchRequest{
			BookingID: job.BookingID,
			Supplier:  &models.SupplierRecord{Name: job.SupplierName},
			By:        "system",
		}); err != nil {
			s.logger.Error().Err(err).Str("booking_id", job.BookingID).Msg("auto-forward after payment failed")
		} else if fresh, err := s.jobs.GetJob(ctx, job.BookingID); err == nil && fresh != nil {
			job = fresh
		}
	}

	return &ConfirmResult{BookingID: job.BookingID, Status: job.Status, Notifications: result}, nil
}

// supplierFromPriorJobs returns the supplier from the most recent other
// job on the same plate, empty when none.
func (s *BookingService) supplierFromPriorJobs(ctx context.Context, job *models.JobRecord) string {
	prior, err := s.jobs.FindJobsByRego(ctx, job.Rego)
	if err != nil {
		s.logger.Warn().Err(err).Str("rego", job.Rego).Msg("rego lookup failed")
		return ""
	}
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].BookingID != job.BookingID && prior[i].SupplierName != "" {
			return prior[i].SupplierName
		}
	}
	return ""
}

// DispatchRequest assigns a supplier to a job.
type DispatchRequest struct {
	BookingID          string
	Supplier           *models.SupplierRecord
	SupplierPriceCents int64
	ETA                string
	By                 string
}

// DispatchResult reports the assignment and the supplier-facing links.
type DispatchResult struct {
	BookingID     string        `json:"bookingId"`
	Status        models.Status `json:"status"`
	SupplierName  string        `json:"supplierName"`
	PortalCode    string        `json:"portalCode"`
	JobLinkCode   string        `json:"jobLinkCode"`
	Notifications notify.Result `json:"notifications"`
}

// DispatchJob merges the supplier into the directory, snapshots the job
// into a one-time supplier link and moves the job to dispatched.
func (s *BookingService) DispatchJob(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if req.Supplier == nil || req.Supplier.Name == "" {
		return nil, fmt.Errorf("supplier name is required")
	}

	job, err := s.jobs.GetJob(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, repository.ErrNotFound
	}

	sup, err := s.suppliers.UpsertSupplier(ctx, req.Supplier.Name, req.Supplier)
	if err != nil {
		return nil, err
	}

	s.geocodeSupplier(ctx, sup)

	portalCode, err := s.suppliers.EnsurePortalCode(ctx, sup.Name)
	if err != nil {
		return nil, err
	}

	if req.SupplierPriceCents > 0 {
		job.SupplierPriceCents = req.SupplierPriceCents
	}
	if req.ETA != "" {
		job.ETA = req.ETA
	}
	job.SupplierName = sup.Name
	job.SupplierPhone = sup.SMSNumber()
	job.SupplierEmail = sup.Email
	job.SupplierAddress = sup.Address

	linkCode, err := s.suppliers.CreateSupplierLink(ctx, &models.SupplierLink{
		BookingID:       job.BookingID,
		SupplierName:    sup.Name,
		CustomerName:    job.CustomerName,
		CustomerPhone:   job.CustomerPhone,
		PickupLocation:  job.PickupLocation,
		DropoffLocation: job.DropoffLocation,
		VehicleDesc:     vehicleDesc(job),
		Rego:            job.Rego,
		SupplierPrice:   job.SupplierPriceCents,
		ETA:             job.ETA,
	})
	if err != nil {
		return nil, err
	}

	if err := advanceToDispatched(job); err != nil {
		return nil, err
	}

	if err := s.jobs.UpdateJob(ctx, job.BookingID, map[string]any{
		"status":          string(job.Status),
		"supplierName":    job.SupplierName,
		"supplierPhone":   job.SupplierPhone,
		"supplierEmail":   job.SupplierEmail,
		"supplierAddress": job.SupplierAddress,
		"supplierPrice":   job.SupplierPriceCents,
		"eta":             job.ETA,
	}); err != nil {
		return nil, err
	}

	by := req.By
	if by == "" {
		by = "office"
	}
	if err := s.jobs.AppendHistory(ctx, job.BookingID, models.NewHistoryEvent("supplier_assigned", by, map[string]string{
		"supplier": sup.Name,
	})); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", job.BookingID).Msg("history append failed")
	}

	data := dataFromJob(job)
	data.PortalLink = s.links.PublicBaseURL + "/supplier/" + linkCode
	result := s.notifier.Notify(ctx, notify.EventSupplierAssigned, data,
		notify.ChannelSupplierEmail, notify.ChannelSupplierSMS, notify.ChannelCustomerSMS)

	if err := s.suppliers.IncrStats(ctx, sup.Name, 1, 0); err != nil {
		s.logger.Warn().Err(err).Str("supplier", sup.Name).Msg("supplier stats update failed")
	}

	s.publishJobEvent(events.EventJobDispatched, job, by)

	return &DispatchResult{
		BookingID:     job.BookingID,
		Status:        job.Status,
		SupplierName:  sup.Name,
		PortalCode:    portalCode,
		JobLinkCode:   linkCode,
		Notifications: result,
	}, nil
}

func (s *BookingService) geocodeSupplier(ctx context.Context, sup *models.SupplierRecord) {
	if s.geo == nil || sup.Address == "" || sup.Lat != 0 || sup.Lng != 0 {
		return
	}
	lat, lng, err := s.geo.Geocode(ctx, sup.Address)
	if err != nil {
		s.logger.Warn().Err(err).Str("supplier", sup.Name).Msg("geocode failed")
		return
	}
	sup.Lat, sup.Lng = lat, lng
	if err := s.suppliers.UpdateFields(ctx, sup.Name, map[string]any{"lat": lat, "lng": lng}); err != nil {
		s.logger.Warn().Err(err).Str("supplier", sup.Name).Msg("coords update failed")
	}
}

// ApprovalResult reports a supplier payment approval.
type ApprovalResult struct {
	BookingID      string `json:"bookingId"`
	SupplierName   string `json:"supplierName"`
	ApprovedAmount int64  `json:"approvedAmount"`
}

// ApproveSupplierPayment marks the supplier invoice on a job as approved
// for payment and bumps the supplier's paid total.
func (s *BookingService) ApproveSupplierPayment(ctx context.Context, bookingID string, amountCents int64, by string) (*ApprovalResult, error) {
	job, err := s.jobs.GetJob(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, repository.ErrNotFound
	}
	if job.SupplierName == "" {
		return nil, fmt.Errorf("job %s has no supplier to pay", bookingID)
	}
	if amountCents <= 0 {
		amountCents = job.SupplierInvoiceAmount
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("no invoice amount on job %s and none supplied", bookingID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.jobs.UpdateJob(ctx, job.BookingID, map[string]any{
		"supplierPaymentApproved": true,
		"supplierApprovedAmount":  amountCents,
		"supplierApprovedAt":      now,
	}); err != nil {
		return nil, err
	}

	if err := s.jobs.AppendHistory(ctx, job.BookingID, models.NewHistoryEvent("payment_approved", by, map[string]string{
		"supplier": job.SupplierName,
		"amount":   fmt.Sprintf("%d", amountCents),
	})); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", job.BookingID).Msg("history append failed")
	}

	if err := s.suppliers.IncrStats(ctx, job.SupplierName, 0, amountCents); err != nil {
		s.logger.Warn().Err(err).Str("supplier", job.SupplierName).Msg("supplier stats update failed")
	}

	data := dataFromJob(job)
	data.InvoiceAmountCents = amountCents
	s.notifier.Notify(ctx, notify.EventSupplierInvoice, data, notify.ChannelSupplierEmail)

	s.publishJobEvent(events.EventSupplierInvoice, job, by)

	return &ApprovalResult{BookingID: job.BookingID, SupplierName: job.SupplierName, ApprovedAmount: amountCents}, nil
}

// JobView is the customer-facing job status payload.
type JobView struct {
	Job      *models.JobRecord     `json:"job"`
	History  []models.HistoryEvent `json:"history"`
	Messages []models.Message      `json:"messages"`
}

// GetJobView returns a job with its history and message thread.
func (s *BookingService) GetJobView(ctx context.Context, bookingID string) (*JobView, error) {
	job, err := s.jobs.GetJob(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, repository.ErrNotFound
	}

	history, err := s.jobs.GetHistory(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	messages, err := s.jobs.GetMessages(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: job, History: history, Messages: messages}, nil
}

// ListJobs returns recent jobs newest-first for admin surfaces.
func (s *BookingService) ListJobs(ctx context.Context, limit int64) ([]*models.JobRecord, error) {
	return s.jobs.ListJobs(ctx, limit)
}

// PurgeJob removes every trace of a job. The denylist and confirm checks
// live in the store; the admin role check lives in the HTTP layer.
func (s *BookingService) PurgeJob(ctx context.Context, ref string, confirm bool) (*repository.PurgeResult, error) {
	res, err := s.jobs.PurgeJob(ctx, ref, confirm)
	if err != nil {
		return nil, err
	}
	s.publishJobEvent(events.EventJobPurged, &models.JobRecord{BookingID: res.BookingID}, "admin")
	return res, nil
}

func (s *BookingService) publishJobEvent(eventType string, job *models.JobRecord, by string) {
	if err := s.bus.PublishJSON(eventType, events.JobEventPayload{
		BookingID:    job.BookingID,
		Rego:         job.Rego,
		Status:       string(job.Status),
		SupplierName: job.SupplierName,
		PriceCents:   job.PriceCents,
		ChangedBy:    by,
	}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}

// advanceToDispatched walks the job through whatever intermediate states
// the transition table requires to reach dispatched.
func advanceToDispatched(job *models.JobRecord) error {
	for job.Status != models.StatusDispatched {
		switch {
		case models.CanTransition(job.Status, models.StatusDispatched):
			if err := models.Transition(job, models.StatusDispatched); err != nil {
				return err
			}
		case models.CanTransition(job.Status, models.StatusAssigned):
			if err := models.Transition(job, models.StatusAssigned); err != nil {
				return err
			}
		case models.CanTransition(job.Status, models.StatusAwaitingSupplier):
			if err := models.Transition(job, models.StatusAwaitingSupplier); err != nil {
				return err
			}
		default:
			return &models.ErrInvalidTransition{From: job.Status, To: models.StatusDispatched}
		}
	}
	return nil
}

// mergeJobFields copies non-empty incoming fields onto the stored job.
func mergeJobFields(job, incoming *models.JobRecord) {
	if incoming.CustomerName != "" {
		job.CustomerName = incoming.CustomerName
	}
	if incoming.CustomerPhone != "" {
		job.CustomerPhone = incoming.CustomerPhone
	}
	if incoming.CustomerEmail != "" {
		job.CustomerEmail = incoming.CustomerEmail
	}
	if incoming.VehicleMake != "" {
		job.VehicleMake = incoming.VehicleMake
	}
	if incoming.VehicleModel != "" {
		job.VehicleModel = incoming.VehicleModel
	}
	if incoming.VehicleColor != "" {
		job.VehicleColor = incoming.VehicleColor
	}
	if incoming.VehicleYear != "" {
		job.VehicleYear = incoming.VehicleYear
	}
	if incoming.Rego != "" {
		job.Rego = incoming.Rego
	}
	if incoming.PickupLocation != "" {
		job.PickupLocation = incoming.PickupLocation
	}
	if incoming.DropoffLocation != "" {
		job.DropoffLocation = incoming.DropoffLocation
	}
	if incoming.ETA != "" {
		job.ETA = incoming.ETA
	}
}

// addJobFields mirrors mergeJobFields into an HSet field map.
func addJobFields(fields map[string]any, incoming *models.JobRecord) {
	set := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	set("customerName", incoming.CustomerName)
	set("customerPhone", incoming.CustomerPhone)
	set("customerEmail", incoming.CustomerEmail)
	set("vehicleMake", incoming.VehicleMake)
	set("vehicleModel", incoming.VehicleModel)
	set("vehicleColor", incoming.VehicleColor)
	set("vehicleYear", incoming.VehicleYear)
	set("rego", incoming.Rego)
	set("pickupLocation", incoming.PickupLocation)
	set("dropoffLocation", incoming.DropoffLocation)
	set("eta", incoming.ETA)
}

func dataFromJob(job *models.JobRecord) notify.Data {
	return notify.Data{
		BookingID:          job.BookingID,
		CustomerName:       job.CustomerName,
		CustomerPhone:      job.CustomerPhone,
		CustomerEmail:      job.CustomerEmail,
		VehicleMake:        job.VehicleMake,
		VehicleModel:       job.VehicleModel,
		VehicleColor:       job.VehicleColor,
		VehicleYear:        job.VehicleYear,
		Rego:               job.Rego,
		PickupLocation:     job.PickupLocation,
		DropoffLocation:    job.DropoffLocation,
		PriceCents:         job.PriceCents,
		ETA:                job.ETA,
		PaymentMethod:      job.PaymentMethod,
		SupplierName:       job.SupplierName,
		SupplierPhone:      job.SupplierPhone,
		SupplierEmail:      job.SupplierEmail,
		SupplierAddress:    job.SupplierAddress,
		SupplierPriceCents: job.SupplierPriceCents,
		InvoiceRef:         job.SupplierInvoiceRef,
		InvoiceAmountCents: job.SupplierInvoiceAmount,
		InvoiceLink:        job.SupplierInvoiceLink,
	}
}

func vehicleDesc(job *models.JobRecord) string {
	out := ""
	for _, p := range []string{job.VehicleYear, job.VehicleColor, job.VehicleMake, job.VehicleModel} {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
