// Package cli implements the deliveryctl subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/delivery/export"
	"github.com/odyssey-erp/deliveryops/internal/platform/httpx"
	"github.com/odyssey-erp/deliveryops/internal/quickbooks"
)

// DeliveryService is the part of the delivery service used by the CLI.
type DeliveryService interface {
	DefaultRange() delivery.DateRange
	Report(ctx context.Context, rng delivery.DateRange) (delivery.Report, error)
	Route(ctx context.Context, rng delivery.DateRange, progress delivery.Progress) (delivery.RoutePlan, error)
}

// ReportOptions configures the report command.
type ReportOptions struct {
	Start    string
	End      string
	CSVPath  string
	XLSXPath string
	Stdout   io.Writer
}

// ResolveRange fills missing bounds from the service default.
func ResolveRange(svc DeliveryService, start, end string) delivery.DateRange {
	rng := svc.DefaultRange()
	if start != "" {
		rng.Start = start
	}
	if end != "" {
		rng.End = end
	}
	return rng
}

// RunReport prints the business summary table and writes the requested exports.
func RunReport(ctx context.Context, svc DeliveryService, opts ReportOptions) error {
	rep, err := svc.Report(ctx, ResolveRange(svc, opts.Start, opts.End))
	if err != nil {
		return err
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if err := PrintReport(out, rep); err != nil {
		return err
	}
	if opts.CSVPath != "" {
		if err := writeFile(opts.CSVPath, func(w io.Writer) error { return export.WriteReportCSV(w, rep) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.CSVPath)
	}
	if opts.XLSXPath != "" {
		if err := writeFile(opts.XLSXPath, func(w io.Writer) error { return export.WriteReportXLSX(w, rep) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.XLSXPath)
	}
	return nil
}

// PrintReport renders the report as an aligned table.
func PrintReport(w io.Writer, rep delivery.Report) error {
	fmt.Fprintf(w, "Deliveries %s to %s\n\n", rep.StartDate, rep.EndDate)
	if rep.IsEmpty() {
		_, err := fmt.Fprintln(w, "No deliveries found in this period.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUSINESS\tDELIVERIES\tVALUE\tCOMMISSION\tFIRST\tLAST\tCUSTOMER")
	for _, b := range rep.Businesses {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			b.BusinessName, b.TotalDeliveries,
			delivery.FormatMoney(b.TotalTransactionValue), delivery.FormatMoney(b.TotalCommission),
			b.FirstDeliveryDate, b.LastDeliveryDate, b.PrimaryCustomer())
	}
	fmt.Fprintf(tw, "TOTAL (%d businesses)\t%d\t%s\t%s\t\t\t\n",
		rep.UniqueBusinesses, rep.TotalDeliveries,
		delivery.FormatMoney(rep.TotalTransactionValue), delivery.FormatMoney(rep.TotalCommission))
	return tw.Flush()
}

// UserMessage converts an error into the text shown to the operator.
func UserMessage(err error) string {
	switch {
	case quickbooks.IsAuthError(err), errors.Is(err, httpx.ErrUpstream):
		return httpx.FetchFailedMessage
	case errors.Is(err, delivery.ErrInvalidRange):
		return err.Error()
	case errors.Is(err, delivery.ErrNoMappedBusinesses):
		return "no business could be located, nothing to route"
	default:
		return err.Error()
	}
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return render(f)
}
