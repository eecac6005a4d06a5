package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/delivery/export"
)

// RouteOptions configures the route command.
type RouteOptions struct {
	Start   string
	End     string
	PDFPath string
	Stdout  io.Writer
	// Progress receives the geocoding progress bar; nil disables it.
	Progress io.Writer
}

// RunRoute plans the delivery route for the range and prints the stops.
func RunRoute(ctx context.Context, svc DeliveryService, opts RouteOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if opts.Progress == nil {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(opts.Progress),
				progressbar.OptionSetDescription("geocoding"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish())
		}
		_ = bar.Set(done)
	}

	plan, err := svc.Route(ctx, ResolveRange(svc, opts.Start, opts.End), progress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	if err := PrintRoute(out, plan); err != nil {
		return err
	}
	if opts.PDFPath != "" {
		if err := writeFile(opts.PDFPath, func(w io.Writer) error { return export.WriteRouteSheet(w, plan) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.PDFPath)
	}
	return nil
}

// PrintRoute renders the ordered stops and any unmapped businesses.
func PrintRoute(w io.Writer, plan delivery.RoutePlan) error {
	fmt.Fprintf(w, "Route %s to %s: %d stops, %.1f miles, about %d minutes\n\n",
		plan.StartDate, plan.EndDate, plan.Route.BusinessCount,
		plan.Route.TotalDistanceMiles, plan.Route.TotalTimeMinutes)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTOP\tLEG MILES\tDELIVERIES\tADDRESS")
	for _, stop := range plan.Route.Stops {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%d\t%s\n", stop.Sequence, stop.Name, stop.LegMiles, stop.Deliveries, stop.Address)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(plan.Unmapped) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nNot mapped (%d):\n", len(plan.Unmapped))
	for _, u := range plan.Unmapped {
		fmt.Fprintf(w, "  %s: %s\n", u.BusinessName, u.Reason)
	}
	return nil
}
