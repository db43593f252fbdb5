package main

import (
	"fmt"
	"os"

	"github.com/adhamcharaf/Optiflow-VF/internal/drive"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/urfave/cli/v2"
)

func nightlyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nightly",
		Usage: "Refresh forecasts, evaluate and export alerts, detect anomalies of the last days",
		Action: func(c *cli.Context) error {
			report, err := appFrom(c).Orchestrator.RunNightly(c.Context)
			if report != nil {
				if perr := printJSON(report); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func alertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "Evaluate the stock alerts of the given products",
		Flags: []cli.Flag{
			productsFlag(),
			&cli.BoolFlag{Name: "export", Usage: "Write the batch to object storage"},
		},
		Action: func(c *cli.Context) error {
			a := appFrom(c)
			ids, err := parseProducts(c)
			if err != nil {
				return err
			}
			batch, err := a.Alerts.EvaluateBatch(c.Context, ids, service.AlertRequest{})
			if err != nil {
				return err
			}
			if c.Bool("export") {
				if a.Exporter == nil {
					return fmt.Errorf("object storage is not configured")
				}
				key, err := a.Exporter.ExportAlerts(c.Context, batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "exported to %s\n", key)
			}
			return printJSON(batch)
		},
	}
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "Incremental anomaly detection, reviewed anomalies are kept",
		Flags: periodFlags(),
		Action: func(c *cli.Context) error {
			period, err := parsePeriod(c)
			if err != nil {
				return err
			}
			ids, err := parseProducts(c)
			if err != nil {
				return err
			}
			res, err := appFrom(c).Anomalies.DetectIncremental(c.Context, period, ids)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func redetectCommand() *cli.Command {
	flags := append(periodFlags(), &cli.BoolFlag{
		Name:  "confirm",
		Usage: "Reset every anomaly of the period to pending",
	})
	return &cli.Command{
		Name:  "redetect",
		Usage: "Full re-detection, manual classifications of the period are lost",
		Flags: flags,
		Action: func(c *cli.Context) error {
			period, err := parsePeriod(c)
			if err != nil {
				return err
			}
			ids, err := parseProducts(c)
			if err != nil {
				return err
			}
			anomalies := appFrom(c).Anomalies
			plan, err := anomalies.PrepareFullRedetection(c.Context, period, ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, plan.Warning)
			if !c.Bool("confirm") {
				return fmt.Errorf("refusing to run without --confirm")
			}

			res, err := anomalies.ConfirmFullRedetection(c.Context, plan.Token)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func cleanMAPECommand() *cli.Command {
	flags := append(periodFlags(), &cli.BoolFlag{
		Name:  "track",
		Usage: "Record the result as the reference of later improvements",
	})
	return &cli.Command{
		Name:  "clean-mape",
		Usage: "MAPE of the period without the ignored anomalies",
		Flags: flags,
		Action: func(c *cli.Context) error {
			period, err := parsePeriod(c)
			if err != nil {
				return err
			}
			ids, err := parseProducts(c)
			if err != nil {
				return err
			}
			anomalies := appFrom(c).Anomalies
			report := anomalies.CleanMAPE
			if c.Bool("track") {
				report = anomalies.TrackImprovement
			}
			res, err := report(c.Context, period, ids)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func importCommand(name, usage string, kind drive.Kind) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage + " from a local CSV/XLSX file or a Google Drive folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "Local file to import"},
			&cli.StringFlag{Name: "folder", Usage: "Google Drive folder id, the configured one by default"},
		},
		Action: func(c *cli.Context) error {
			a := appFrom(c)
			if path := c.String("file"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				res, err := a.Importer.Import(c.Context, kind, path, f)
				if err != nil {
					return err
				}
				return printJSON(res)
			}

			folder := c.String("folder")
			if folder == "" {
				folder = a.Config.Drive.SalesFolderID
				if kind == drive.KindStock {
					folder = a.Config.Drive.StockFolderID
				}
			}
			if folder == "" {
				return fmt.Errorf("either --file or --folder is required")
			}
			results, err := a.Importer.ImportFolder(c.Context, kind, folder)
			if perr := printJSON(results); perr != nil {
				return perr
			}
			return err
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema",
		Action: func(c *cli.Context) error {
			return appFrom(c).Migrate(c.Context)
		},
	}
}
