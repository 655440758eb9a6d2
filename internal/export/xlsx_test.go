package export

import (
	"bytes"
	"testing"

	"github.com/eek-site/eek-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteJobsXLSX(t *testing.T) {
	jobs := []*models.JobRecord{
		{
			BookingID:      "HT-1",
			Status:         models.StatusBooked,
			CustomerName:   "Sam",
			Rego:           "ABC123",
			VehicleMake:    "Toyota",
			VehicleModel:   "Hilux",
			PickupLocation: "1 Queen St",
			PriceCents:     18900,
			SupplierName:   "Joes Towing",
		},
		{BookingID: "HT-2", Status: models.StatusPending},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJobsXLSX(&buf, jobs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4) // title + header + 2 jobs

	assert.Equal(t, "Booking ID", rows[1][0])
	assert.Equal(t, "HT-1", rows[2][0])
	assert.Equal(t, "booked", rows[2][1])
	assert.Equal(t, "Toyota Hilux", rows[2][7])
	assert.Equal(t, "$189.00", rows[2][10])
	assert.Equal(t, "HT-2", rows[3][0])
}

func TestWriteJobsXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJobsXLSX(&buf, nil))
	assert.NotZero(t, buf.Len())
}
