package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/deliveryops/internal/commission"
	"github.com/odyssey-erp/deliveryops/internal/delivery"
)

const (
	businessSheet = "Businesses"
	deliverySheet = "Deliveries"
	moneyFormat   = `"$"#,##0.00`
)

var deliveryColumns = []string{
	"Business Name",
	"Delivery Date",
	"Invoice Number",
	"Customer Name",
	"Transaction Value",
	"Commission Rate",
	"Commission",
	"Amount Mismatch",
}

// WriteReportXLSX writes a workbook with a business summary sheet and a
// per-delivery detail sheet.
func WriteReportXLSX(w io.Writer, report delivery.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(businessSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(deliverySheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return err
	}
	warn, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "9A0511"}})
	if err != nil {
		return err
	}

	businessHeaders := append(append([]string{}, ReportColumns...), "Other Customers", "Address")
	if err := writeHeader(f, businessSheet, businessHeaders, headerStyle); err != nil {
		return err
	}
	for i, b := range report.Businesses {
		row := i + 2
		values := []any{
			b.BusinessName,
			b.TotalDeliveries,
			commission.Cents(b.TotalTransactionValue).InexactFloat64(),
			commission.Cents(b.TotalCommission).InexactFloat64(),
			b.FirstDeliveryDate,
			b.LastDeliveryDate,
			b.PrimaryCustomer(),
			b.OtherCustomers(),
			b.Address.String(),
		}
		if err := setRow(f, businessSheet, row, values); err != nil {
			return err
		}
		if err := f.SetCellStyle(businessSheet, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), money); err != nil {
			return err
		}
	}
	totalRow := len(report.Businesses) + 2
	if err := setRow(f, businessSheet, totalRow, []any{
		"Total",
		report.TotalDeliveries,
		commission.Cents(report.TotalTransactionValue).InexactFloat64(),
		commission.Cents(report.TotalCommission).InexactFloat64(),
	}); err != nil {
		return err
	}
	if err := f.SetCellStyle(businessSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("B%d", totalRow), headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(businessSheet, fmt.Sprintf("C%d", totalRow), fmt.Sprintf("D%d", totalRow), money); err != nil {
		return err
	}

	if err := writeHeader(f, deliverySheet, deliveryColumns, headerStyle); err != nil {
		return err
	}
	row := 2
	for _, b := range report.Businesses {
		for _, d := range b.Deliveries {
			mismatch := ""
			if d.AmountMismatch {
				mismatch = "expected " + delivery.FormatMoney(d.ExpectedCommission)
			}
			if err := setRow(f, deliverySheet, row, []any{
				b.BusinessName,
				d.DeliveryDate,
				d.InvoiceNumber,
				d.CustomerName,
				d.TransactionValue.InexactFloat64(),
				d.CommissionRate.String() + "%",
				d.CommissionAmount.InexactFloat64(),
				mismatch,
			}); err != nil {
				return err
			}
			if err := f.SetCellStyle(deliverySheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), money); err != nil {
				return err
			}
			if err := f.SetCellStyle(deliverySheet, fmt.Sprintf("G%d", row), fmt.Sprintf("G%d", row), money); err != nil {
				return err
			}
			if d.AmountMismatch {
				if err := f.SetCellStyle(deliverySheet, fmt.Sprintf("H%d", row), fmt.Sprintf("H%d", row), warn); err != nil {
					return err
				}
			}
			row++
		}
	}

	if idx, err := f.GetSheetIndex(businessSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	_, err = f.WriteTo(w)
	return err
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func strPtr(s string) *string {
	return &s
}
