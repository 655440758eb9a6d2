package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/eek-site/eek-sub001/internal/events"
	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/notify"
	"github.com/eek-site/eek-sub001/internal/repository"

	"github.com/rs/zerolog"
)

// portalScanLimit bounds the jobs scan backing a portal view. Portals show
// the working set, not the full archive.
const portalScanLimit = 200

// profileAllowList maps patchable profile fields to supplier hash fields.
// Anything else in a patch is silently ignored.
var profileAllowList = map[string]string{
	"legalName":       "legalName",
	"email":           "email",
	"phone":           "phone",
	"address":         "address",
	"city":            "city",
	"postcode":        "postcode",
	"bankName":        "bankName",
	"bankAccount":     "bankAccount",
	"bankAccountName": "bankAccountName",
	"gstNumber":       "gstNumber",
}

// PortalService backs the supplier self-service portal. The portal code is
// the sole credential; every operation resolves it first.
type PortalService struct {
	jobs      *repository.JobStore
	suppliers *repository.SupplierDirectory
	notifier  *notify.Notifier
	bus       *events.EventBus
	logger    *zerolog.Logger
}

func NewPortalService(jobs *repository.JobStore, suppliers *repository.SupplierDirectory, notifier *notify.Notifier, bus *events.EventBus, logger *zerolog.Logger) *PortalService {
	return &PortalService{
		jobs:      jobs,
		suppliers: suppliers,
		notifier:  notifier,
		bus:       bus,
		logger:    logger,
	}
}

// PortalJob is one job as the supplier sees it.
type PortalJob struct {
	Job      *models.JobRecord     `json:"job"`
	Messages []models.Message      `json:"messages"`
	History  []models.HistoryEvent `json:"history"`
}

// PortalView is the full portal payload: the supplier's record and their
// jobs partitioned into open and closed.
type PortalView struct {
	Supplier *models.SupplierRecord `json:"supplier"`
	Open     []*PortalJob           `json:"open"`
	Closed   []*PortalJob           `json:"closed"`
}

// GetPortalView resolves a portal code and assembles the supplier's jobs.
// One-time dispatch link codes resolve too, scoped to their single job.
func (p *PortalService) GetPortalView(ctx context.Context, code string) (*PortalView, error) {
	sup, only, err := p.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var jobs []*models.JobRecord
	if only != "" {
		job, err := p.jobs.GetJob(ctx, only)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	} else {
		jobs, err = p.jobs.FindJobsBySupplier(ctx, sup.Name, portalScanLimit)
		if err != nil {
			return nil, err
		}
	}

	view := &PortalView{Supplier: sup, Open: []*PortalJob{}, Closed: []*PortalJob{}}
	for _, job := range jobs {
		pj, err := p.portalJob(ctx, job)
		if err != nil {
			return nil, err
		}
		if models.ClosedStatuses[job.Status] {
			view.Closed = append(view.Closed, pj)
		} else {
			view.Open = append(view.Open, pj)
		}
	}
	return view, nil
}

func (p *PortalService) portalJob(ctx context.Context, job *models.JobRecord) (*PortalJob, error) {
	messages, err := p.jobs.GetMessages(ctx, job.BookingID)
	if err != nil {
		return nil, err
	}
	history, err := p.jobs.GetHistory(ctx, job.BookingID)
	if err != nil {
		return nil, err
	}
	return &PortalJob{Job: job, Messages: messages, History: history}, nil
}

// resolveCode maps a code to a supplier. A second return of a booking ID
// restricts the session to that one job (dispatch link codes).
func (p *PortalService) resolveCode(ctx context.Context, code string) (*models.SupplierRecord, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", repository.ErrNotFound
	}

	sup, err := p.suppliers.GetSupplierByPortalCode(ctx, code)
	if err != nil {
		return nil, "", err
	}
	if sup != nil {
		return sup, "", nil
	}

	link, err := p.suppliers.GetSupplierLink(ctx, code)
	if err != nil {
		return nil, "", err
	}
	if link == nil {
		return nil, "", repository.ErrNotFound
	}
	sup, err = p.suppliers.GetSupplierByName(ctx, link.SupplierName)
	if err != nil {
		return nil, "", err
	}
	if sup == nil {
		return nil, "", repository.ErrNotFound
	}
	return sup, link.BookingID, nil
}

// resolveJob finds the supplier's job by booking ID, falling back to a
// plate lookup. Ownership is enforced here, not in the store.
func (p *PortalService) resolveJob(ctx context.Context, sup *models.SupplierRecord, jobRef string) (*models.JobRecord, error) {
	job, err := p.jobs.GetJob(ctx, jobRef)
	if err != nil {
		return nil, err
	}
	if job == nil {
		byRego, err := p.jobs.FindJobsByRego(ctx, jobRef)
		if err != nil {
			return nil, err
		}
		for i := len(byRego) - 1; i >= 0; i-- {
			if byRego[i].SupplierName == sup.Name {
				job = byRego[i]
				break
			}
		}
	}
	if job == nil {
		return nil, repository.ErrNotFound
	}
	if job.SupplierName != sup.Name {
		return nil, ErrForbidden
	}
	return job, nil
}

// PostMessage appends a supplier chat message to a job and alerts the
// office.
func (p *PortalService) PostMessage(ctx context.Context, code, jobRef, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	sup, only, err := p.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if only != "" {
		jobRef = only
	}

	job, err := p.resolveJob(ctx, sup, jobRef)
	if err != nil {
		return nil, err
	}

	msg := models.NewMessage(models.MessageFromSupplierPrefix+sup.Name, text)
	if err := p.jobs.AppendMessage(ctx, job.BookingID, msg); err != nil {
		return nil, err
	}

	data := dataFromJob(job)
	data.MessageFrom = sup.Name
	data.MessageText = text
	p.notifier.Notify(ctx, notify.EventSupplierMessage, data)

	return &msg, nil
}

// InvoiceRequest is a supplier invoice submission against a job.
type InvoiceRequest struct {
	JobRef      string
	Ref         string
	AmountCents int64
	Link        string
}

// SubmitInvoice records the supplier's invoice on the job. Rejected when
// the job belongs to a different supplier.
func (p *PortalService) SubmitInvoice(ctx context.Context, code string, req InvoiceRequest) (*models.JobRecord, error) {
	if req.Ref == "" {
		return nil, fmt.Errorf("invoice reference is required")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("invoice amount must be positive")
	}

	sup, only, err := p.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if only != "" {
		req.JobRef = only
	}

	job, err := p.resolveJob(ctx, sup, req.JobRef)
	if err != nil {
		return nil, err
	}

	if err := p.jobs.UpdateJob(ctx, job.BookingID, map[string]any{
		"supplierInvoiceRef":    req.Ref,
		"supplierInvoiceAmount": req.AmountCents,
		"supplierInvoiceLink":   req.Link,
	}); err != nil {
		return nil, err
	}
	job.SupplierInvoiceRef = req.Ref
	job.SupplierInvoiceAmount = req.AmountCents
	job.SupplierInvoiceLink = req.Link

	if err := p.jobs.AppendHistory(ctx, job.BookingID, models.NewHistoryEvent("invoice_submitted", models.MessageFromSupplierPrefix+sup.Name, map[string]string{
		"ref":    req.Ref,
		"amount": fmt.Sprintf("%d", req.AmountCents),
	})); err != nil {
		p.logger.Warn().Err(err).Str("booking_id", job.BookingID).Msg("history append failed")
	}

	p.notifier.Notify(ctx, notify.EventSupplierInvoice, dataFromJob(job))

	if err := p.bus.PublishJSON(events.EventSupplierInvoice, events.JobEventPayload{
		BookingID:    job.BookingID,
		Status:       string(job.Status),
		SupplierName: sup.Name,
		ChangedBy:    "supplier",
	}); err != nil {
		p.logger.Warn().Err(err).Msg("event publish failed")
	}

	return job, nil
}

// UpdateProfile applies an allow-listed patch to the supplier's own
// record. Unknown fields are dropped without error.
func (p *PortalService) UpdateProfile(ctx context.Context, code string, patch map[string]string) (*models.SupplierRecord, error) {
	sup, _, err := p.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(patch))
	for k, v := range patch {
		if field, ok := profileAllowList[k]; ok {
			fields[field] = v
		}
	}
	if len(fields) == 0 {
		return sup, nil
	}

	if err := p.suppliers.UpdateFields(ctx, sup.Name, fields); err != nil {
		return nil, err
	}
	return p.suppliers.GetSupplierByName(ctx, sup.Name)
}
