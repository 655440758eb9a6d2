package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eek-site/eek-sub001/internal/export"
	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/repository"
	"github.com/eek-site/eek-sub001/internal/service"
)

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var job models.JobRecord
	if err := decodeJSON(r, &job); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.booking.CreateBooking(r.Context(), &job)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"bookingId":   res.BookingID,
		"status":      res.Status,
		"paymentLink": res.PaymentLink,
	})
}

func (s *Server) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID     string            `json:"bookingId"`
		PaymentMethod string            `json:"paymentMethod"`
		Price         int64             `json:"price"`
		Job           *models.JobRecord `json:"job"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.BookingID == "" {
		writeError(w, http.StatusBadRequest, "bookingId is required")
		return
	}

	res, err := s.booking.ConfirmBooking(r.Context(), service.ConfirmRequest{
		BookingID:     body.BookingID,
		PaymentMethod: body.PaymentMethod,
		PriceCents:    body.Price,
		Job:           body.Job,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookingId":     res.BookingID,
		"status":        res.Status,
		"notifications": res.Notifications,
	})
}

func (s *Server) handleDispatchJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID     string                 `json:"bookingId"`
		Supplier      *models.SupplierRecord `json:"supplier"`
		SupplierPrice int64                  `json:"supplierPrice"`
		ETA           string                 `json:"eta"`
		By            string                 `json:"by"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.BookingID == "" {
		writeError(w, http.StatusBadRequest, "bookingId is required")
		return
	}
	if body.Supplier == nil || body.Supplier.Name == "" {
		writeError(w, http.StatusBadRequest, "supplier name is required")
		return
	}

	res, err := s.booking.DispatchJob(r.Context(), service.DispatchRequest{
		BookingID:          body.BookingID,
		Supplier:           body.Supplier,
		SupplierPriceCents: body.SupplierPrice,
		ETA:                body.ETA,
		By:                 body.By,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookingId":     res.BookingID,
		"status":        res.Status,
		"supplierName":  res.SupplierName,
		"portalCode":    res.PortalCode,
		"jobLinkCode":   res.JobLinkCode,
		"notifications": res.Notifications,
	})
}

func (s *Server) handlePurgeJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID string `json:"bookingId"`
		Confirm   bool   `json:"confirm"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.BookingID == "" {
		writeError(w, http.StatusBadRequest, "bookingId is required")
		return
	}

	res, err := s.booking.PurgeJob(r.Context(), body.BookingID, body.Confirm)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookingId":   res.BookingID,
		"deletedKeys": res.DeletedKeys,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	view, err := s.booking.GetJobView(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job":      view.Job,
		"history":  view.History,
		"messages": view.Messages,
	})
}

func (s *Server) handleApprovePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID string `json:"bookingId"`
		Amount    int64  `json:"amount"`
		By        string `json:"by"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.BookingID == "" {
		writeError(w, http.StatusBadRequest, "bookingId is required")
		return
	}
	if body.By == "" {
		body.By = "admin"
	}

	res, err := s.booking.ApproveSupplierPayment(r.Context(), body.BookingID, body.Amount, body.By)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookingId":      res.BookingID,
		"supplierName":   res.SupplierName,
		"approvedAmount": res.ApprovedAmount,
	})
}

func (s *Server) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobs, err := s.booking.ListJobs(r.Context(), 1000)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("jobs_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteJobsXLSX(w, jobs); err != nil {
		s.logger.Error().Err(err).Msg("jobs export failed")
	}
}

func (s *Server) handleSupplierPortal(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/supplier-portal/")
	if code == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusBadRequest, "portal code is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handlePortalView(w, r, code)
	case http.MethodPost:
		s.handlePortalPost(w, r, code)
	case http.MethodPatch:
		s.handlePortalPatch(w, r, code)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePortalView(w http.ResponseWriter, r *http.Request, code string) {
	view, err := s.portal.GetPortalView(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"supplier": view.Supplier,
		"open":     view.Open,
		"closed":   view.Closed,
	})
}

// handlePortalPost accepts either a chat message or an invoice submission,
// discriminated by which fields the body carries.
func (s *Server) handlePortalPost(w http.ResponseWriter, r *http.Request, code string) {
	var body struct {
		JobRef     string `json:"jobRef"`
		Message    string `json:"message"`
		InvoiceRef string `json:"invoiceRef"`
		Amount     int64  `json:"amount"`
		Link       string `json:"link"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case body.Message != "":
		msg, err := s.portal.PostMessage(r.Context(), code, body.JobRef, body.Message)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": msg})

	case body.InvoiceRef != "":
		job, err := s.portal.SubmitInvoice(r.Context(), code, service.InvoiceRequest{
			JobRef:      body.JobRef,
			Ref:         body.InvoiceRef,
			AmountCents: body.Amount,
			Link:        body.Link,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"job": job})

	default:
		writeError(w, http.StatusBadRequest, "message or invoiceRef is required")
	}
}

func (s *Server) handlePortalPatch(w http.ResponseWriter, r *http.Request, code string) {
	var patch map[string]string
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sup, err := s.portal.UpdateProfile(r.Context(), code, patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"supplier": sup})
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	suppliers, err := s.suppliers.ListSuppliers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

func (s *Server) handleSupplier(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/suppliers/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "supplier name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sup, err := s.suppliers.GetSupplierByName(r.Context(), name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if sup == nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"supplier": sup})

	case http.MethodPut:
		var incoming models.SupplierRecord
		if err := decodeJSON(r, &incoming); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sup, err := s.suppliers.UpsertSupplier(r.Context(), name, &incoming)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"supplier": sup})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := repository.Ping(r.Context(), s.redis); err != nil {
		writeError(w, http.StatusInternalServerError, "redis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
