package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
)

var routeColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Stop", 60, "L"},
	{"Address", 75, "L"},
	{"Deliveries", 20, "R"},
	{"Leg (mi)", 20, "R"},
}

// WriteRouteSheet renders a printable driver sheet for a route plan.
func WriteRouteSheet(w io.Writer, plan delivery.RoutePlan) error {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Delivery Route "+plan.StartDate+" to "+plan.EndDate, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Delivery Route", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Deliveries %s to %s", plan.StartDate, plan.EndDate), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%d stops, %.1f mi, about %d min", plan.Route.BusinessCount, plan.Route.TotalDistanceMiles, plan.Route.TotalTimeMinutes), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range routeColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, stop := range plan.Route.Stops {
		deliveries := ""
		if stop.Deliveries > 0 {
			deliveries = strconv.Itoa(stop.Deliveries)
		}
		cells := []string{
			strconv.Itoa(stop.Sequence),
			tr(stop.Name),
			tr(stop.Address),
			deliveries,
			fmt.Sprintf("%.1f", stop.LegMiles),
		}
		for i, col := range routeColumns {
			pdf.CellFormat(col.width, 6, truncate(pdf, cells[i], col.width-2), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(plan.Unmapped) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Not on route (no location)", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, u := range plan.Unmapped {
			line := u.BusinessName
			if u.Address != "" {
				line += " - " + u.Address
			}
			pdf.CellFormat(0, 5, tr(line+" ("+u.Reason+")"), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
