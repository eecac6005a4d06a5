package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v2"

	"github.com/odyssey-erp/deliveryops/cmd/deliveryctl/cli"
	"github.com/odyssey-erp/deliveryops/internal/app"
	"github.com/odyssey-erp/deliveryops/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", cli.UserMessage(err))
		os.Exit(1)
	}
}

func newApp() *urfave.App {
	rangeFlags := []urfave.Flag{
		&urfave.StringFlag{Name: "start", Usage: "first delivery date (YYYY-MM-DD)"},
		&urfave.StringFlag{Name: "end", Usage: "last delivery date (YYYY-MM-DD)"},
	}
	return &urfave.App{
		Name:  "deliveryctl",
		Usage: "delivery commission reports and route planning",
		Commands: []*urfave.Command{
			{
				Name:  "report",
				Usage: "summarise deliveries by business",
				Flags: append([]urfave.Flag{
					&urfave.StringFlag{Name: "csv", Usage: "write the report as CSV to `FILE`"},
					&urfave.StringFlag{Name: "xlsx", Usage: "write the report as XLSX to `FILE`"},
				}, rangeFlags...),
				Action: func(c *urfave.Context) error {
					return withServices(c, func(svc *app.Services) error {
						return cli.RunReport(c.Context, svc.Delivery, cli.ReportOptions{
							Start:    c.String("start"),
							End:      c.String("end"),
							CSVPath:  c.String("csv"),
							XLSXPath: c.String("xlsx"),
							Stdout:   c.App.Writer,
						})
					})
				},
			},
			{
				Name:  "route",
				Usage: "plan a delivery route through the businesses served in the range",
				Flags: append([]urfave.Flag{
					&urfave.StringFlag{Name: "pdf", Usage: "write a printable route sheet to `FILE`"},
				}, rangeFlags...),
				Action: func(c *urfave.Context) error {
					return withServices(c, func(svc *app.Services) error {
						return cli.RunRoute(c.Context, svc.Delivery, cli.RouteOptions{
							Start:    c.String("start"),
							End:      c.String("end"),
							PDFPath:  c.String("pdf"),
							Stdout:   c.App.Writer,
							Progress: c.App.ErrWriter,
						})
					})
				},
			},
			{
				Name:  "quote",
				Usage: "price a delivery and print its invoice line description",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "value", Usage: "transaction value in dollars", Required: true},
					&urfave.StringFlag{Name: "date", Usage: "delivery date (YYYY-MM-DD)", Required: true},
					&urfave.StringFlag{Name: "to", Usage: "recipient business", Required: true},
				},
				Action: func(c *urfave.Context) error {
					q, err := cli.BuildQuote(cli.QuoteOptions{
						Value:     c.String("value"),
						Date:      c.String("date"),
						Recipient: c.String("to"),
					})
					if err != nil {
						return err
					}
					cli.PrintQuote(c.App.Writer, q)
					return nil
				},
			},
			{
				Name:  "geocode",
				Usage: "manage the geocoder cache",
				Subcommands: []*urfave.Command{
					{
						Name:  "flush",
						Usage: "forget cached geocoder answers",
						Action: func(c *urfave.Context) error {
							return withServices(c, func(svc *app.Services) error {
								return cli.FlushGeocodeCache(c.Context, svc.Geocoder, c.App.Writer)
							})
						},
					},
				},
			},
			{
				Name:  "jobs",
				Usage: "manage background jobs",
				Subcommands: []*urfave.Command{
					{
						Name:      "trigger",
						Usage:     "enqueue a job",
						ArgsUsage: cli.JobNameGeocodeWarmup,
						Flags: []urfave.Flag{
							&urfave.IntFlag{Name: "lookback-days", Value: jobs.DefaultLookbackDays},
						},
						Action: func(c *urfave.Context) error {
							return withJobs(c, func(j *cli.JobsCLI) error {
								info, err := j.Trigger(c.Context, c.Args().First(), c.Int("lookback-days"))
								if err != nil {
									return err
								}
								fmt.Fprintf(c.App.Writer, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
								return nil
							})
						},
					},
					{
						Name:  "stats",
						Usage: "show queue depth",
						Action: func(c *urfave.Context) error {
							return withJobs(c, func(j *cli.JobsCLI) error {
								stats, err := j.InspectQueue()
								if err != nil {
									return err
								}
								fmt.Fprintf(c.App.Writer, "%s: pending=%d active=%d scheduled=%d retry=%d\n",
									stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
								return nil
							})
						},
					},
				},
			},
		},
	}
}

func loadConfig(c *urfave.Context) (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLoggerTo(cfg, c.App.ErrWriter), nil
}

func withServices(c *urfave.Context, fn func(*app.Services) error) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	services, err := app.NewServices(c.Context, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.Any("error", err))
		}
	}()
	return fn(services)
}

func withJobs(c *urfave.Context, fn func(*cli.JobsCLI) error) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("close jobs client", slog.Any("error", err))
		}
	}()
	return fn(jobsCLI)
}
