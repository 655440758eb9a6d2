package service

import (
	"context"
	"testing"

	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSupplier registers a supplier and returns its portal code.
func seedSupplier(t *testing.T, f *fixture, name string) string {
	t.Helper()
	ctx := context.Background()

	_, err := f.suppliers.UpsertSupplier(ctx, name, &models.SupplierRecord{
		Name:  name,
		Phone: "0211234567",
		Email: "ops@" + "supplier.nz",
	})
	require.NoError(t, err)

	code, err := f.suppliers.EnsurePortalCode(ctx, name)
	require.NoError(t, err)
	return code
}

func TestGetPortalViewPartitionsJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-OPEN",
		SupplierName: "Joes Towing",
		Status:       models.StatusDispatched,
	})
	require.NoError(t, err)
	_, err = f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-DONE",
		SupplierName: "Joes Towing",
		Status:       models.StatusCompleted,
	})
	require.NoError(t, err)
	_, err = f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-OTHER",
		SupplierName: "Other Crew",
		Status:       models.StatusDispatched,
	})
	require.NoError(t, err)

	require.NoError(t, f.jobs.AppendMessage(ctx, "HT-OPEN", models.NewMessage(models.MessageFromOfficeSupplier, "on your way?")))

	view, err := f.portal.GetPortalView(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Joes Towing", view.Supplier.Name)
	require.Len(t, view.Open, 1)
	require.Len(t, view.Closed, 1)
	assert.Equal(t, "HT-OPEN", view.Open[0].Job.BookingID)
	assert.Equal(t, "HT-DONE", view.Closed[0].Job.BookingID)
	require.Len(t, view.Open[0].Messages, 1)
	assert.Equal(t, "on your way?", view.Open[0].Messages[0].Message)
}

func TestGetPortalViewUnknownCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.portal.GetPortalView(context.Background(), "nosuchcode42")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetPortalViewDispatchLinkScopedToOneJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSupplier(t, f, "Joes Towing")

	for _, id := range []string{"HT-A", "HT-B"} {
		_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
			BookingID:    id,
			SupplierName: "Joes Towing",
			Status:       models.StatusDispatched,
		})
		require.NoError(t, err)
	}

	linkCode, err := f.suppliers.CreateSupplierLink(ctx, &models.SupplierLink{
		BookingID:    "HT-A",
		SupplierName: "Joes Towing",
	})
	require.NoError(t, err)

	view, err := f.portal.GetPortalView(ctx, linkCode)
	require.NoError(t, err)
	require.Len(t, view.Open, 1)
	assert.Equal(t, "HT-A", view.Open[0].Job.BookingID)
	assert.Empty(t, view.Closed)
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-MSG",
		SupplierName: "Joes Towing",
		Status:       models.StatusDispatched,
	})
	require.NoError(t, err)

	msg, err := f.portal.PostMessage(ctx, code, "HT-MSG", "picked up, eta 20")
	require.NoError(t, err)
	assert.Equal(t, "supplier:Joes Towing", msg.From)

	stored, err := f.jobs.GetMessages(ctx, "HT-MSG")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "picked up, eta 20", stored[0].Message)
}

func TestPostMessageRegoFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-RG",
		Rego:         "KLM456",
		SupplierName: "Joes Towing",
		Status:       models.StatusDispatched,
	})
	require.NoError(t, err)

	_, err = f.portal.PostMessage(ctx, code, "KLM456", "at the car")
	require.NoError(t, err)

	stored, err := f.jobs.GetMessages(ctx, "HT-RG")
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestPostMessageForbiddenOnForeignJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-FOR",
		SupplierName: "Other Crew",
		Status:       models.StatusDispatched,
	})
	require.NoError(t, err)

	_, err = f.portal.PostMessage(ctx, code, "HT-FOR", "hello")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPostMessageValidation(t *testing.T) {
	f := newFixture(t)
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.portal.PostMessage(context.Background(), code, "HT-X", "   ")
	assert.Error(t, err)
}

func TestSubmitInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-INV",
		SupplierName: "Joes Towing",
		Status:       models.StatusCompleted,
	})
	require.NoError(t, err)

	job, err := f.portal.SubmitInvoice(ctx, code, InvoiceRequest{
		JobRef:      "HT-INV",
		Ref:         "INV-100",
		AmountCents: 15000,
		Link:        "https://files.example.nz/inv-100.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-100", job.SupplierInvoiceRef)

	stored, err := f.jobs.GetJob(ctx, "HT-INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-100", stored.SupplierInvoiceRef)
	assert.Equal(t, int64(15000), stored.SupplierInvoiceAmount)
	assert.Equal(t, "https://files.example.nz/inv-100.pdf", stored.SupplierInvoiceLink)

	history, err := f.jobs.GetHistory(ctx, "HT-INV")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "invoice_submitted", history[0].Action)
}

func TestSubmitInvoiceForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	_, err := f.jobs.CreateJob(ctx, &models.JobRecord{
		BookingID:    "HT-INV2",
		SupplierName: "Other Crew",
	})
	require.NoError(t, err)

	_, err = f.portal.SubmitInvoice(ctx, code, InvoiceRequest{
		JobRef:      "HT-INV2",
		Ref:         "INV-1",
		AmountCents: 100,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	code := seedSupplier(t, f, "Joes Towing")
	ctx := context.Background()

	_, err := f.portal.SubmitInvoice(ctx, code, InvoiceRequest{JobRef: "HT-X", AmountCents: 100})
	assert.Error(t, err)

	_, err = f.portal.SubmitInvoice(ctx, code, InvoiceRequest{JobRef: "HT-X", Ref: "INV-1"})
	assert.Error(t, err)
}

func TestUpdateProfileAllowList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := seedSupplier(t, f, "Joes Towing")

	sup, err := f.portal.UpdateProfile(ctx, code, map[string]string{
		"bankAccount": "12-3456-7890123-00",
		"gstNumber":   "123-456-789",
		"name":        "Hacked Name",
		"portalCode":  "stolen",
		"jobCount":    "999",
	})
	require.NoError(t, err)
	assert.Equal(t, "12-3456-7890123-00", sup.BankAccount)
	assert.Equal(t, "123-456-789", sup.GSTNumber)
	assert.Equal(t, "Joes Towing", sup.Name)
	assert.Equal(t, code, sup.PortalCode)
	assert.Zero(t, sup.JobCount)
}

func TestUpdateProfileEmptyPatch(t *testing.T) {
	f := newFixture(t)
	code := seedSupplier(t, f, "Joes Towing")

	sup, err := f.portal.UpdateProfile(context.Background(), code, map[string]string{"unknown": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Joes Towing", sup.Name)
}
