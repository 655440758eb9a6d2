package export

import (
	"fmt"
	"io"
	"time"

	"github.com/eek-site/eek-sub001/internal/models"

	"github.com/xuri/excelize/v2"
)

var jobColumns = []string{
	"Booking ID", "Status", "Created", "Customer", "Phone", "Email",
	"Rego", "Vehicle", "Pickup", "Drop-off", "Price", "Payment",
	"Supplier", "Supplier price", "Invoice ref", "Invoice amount",
}

// WriteJobsXLSX streams a workbook of job records. One row per job,
// newest first as supplied by the caller.
func WriteJobsXLSX(w io.Writer, jobs []*models.JobRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Jobs"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Jobs export %s", time.Now().Format("02.01.2006")))

	for i, col := range jobColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, col)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(jobColumns), 2)
	_ = f.SetCellStyle(sheetName, "A2", lastHeader, headerStyle)

	for i, job := range jobs {
		row := i + 3
		values := []any{
			job.BookingID,
			string(job.Status),
			job.CreatedAt,
			job.CustomerName,
			job.CustomerPhone,
			job.CustomerEmail,
			job.Rego,
			vehicle(job),
			job.PickupLocation,
			job.DropoffLocation,
			dollars(job.PriceCents),
			job.PaymentMethod,
			job.SupplierName,
			dollars(job.SupplierPriceCents),
			job.SupplierInvoiceRef,
			dollars(job.SupplierInvoiceAmount),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 18)
	_ = f.SetColWidth(sheetName, "D", "J", 22)
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

func vehicle(job *models.JobRecord) string {
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

func dollars(cents int64) string {
	if cents == 0 {
		return ""
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
