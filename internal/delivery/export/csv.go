// Package export renders delivery reports and route plans as CSV, XLSX and PDF.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/commission"
	"github.com/odyssey-erp/deliveryops/internal/delivery"
)

const csvBufferSize = 32 * 1024

// ReportColumns are the business summary columns shared by the CSV and XLSX exports.
var ReportColumns = []string{
	"Business Name",
	"Total Deliveries",
	"Total Transaction Value",
	"Total Commission",
	"First Delivery",
	"Last Delivery",
	"Customer Name",
}

// ReportFilename returns the download name for a report export.
func ReportFilename(report delivery.Report, ext string) string {
	return fmt.Sprintf("delivery-report-%s-to-%s.%s", report.StartDate, report.EndDate, ext)
}

// WriteReportCSV writes one row per business. An empty report yields only the header.
func WriteReportCSV(w io.Writer, report delivery.Report) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	if err := writer.Write(ReportColumns); err != nil {
		return err
	}
	for _, b := range report.Businesses {
		row := []string{
			b.BusinessName,
			strconv.Itoa(b.TotalDeliveries),
			dollars(b.TotalTransactionValue),
			dollars(b.TotalCommission),
			b.FirstDeliveryDate,
			b.LastDeliveryDate,
			b.PrimaryCustomer(),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// dollars formats without grouping, e.g. "$1234.50".
func dollars(v decimal.Decimal) string {
	return "$" + commission.Cents(v).StringFixed(2)
}
