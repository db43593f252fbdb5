package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/app"
	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/pkg/logger"
	"github.com/urfave/cli/v2"
)

type ctxKey struct{}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	if c.String("store") != "" {
		cfg.Engine.StoreDriver = c.String("store")
	}
	logger.Setup("release", c.String("log-level"))

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	c.Context = context.WithValue(c.Context, ctxKey{}, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(ctxKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(ctxKey{}).(*app.App)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Usage: "First day (YYYY-MM-DD)", Required: true},
		&cli.StringFlag{Name: "end", Usage: "Last day (YYYY-MM-DD)", Required: true},
		productsFlag(),
	}
}

func productsFlag() cli.Flag {
	return &cli.StringFlag{Name: "products", Usage: "Comma separated product ids, all products when empty"}
}

func parsePeriod(c *cli.Context) (domain.DateRange, error) {
	start, err := time.Parse("2006-01-02", c.String("start"))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.String("end"))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid --end: %w", err)
	}
	return domain.DateRange{Start: start, End: end}, nil
}

func parseProducts(c *cli.Context) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.String("products"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "optiflow",
		Usage: "Batch tooling of the replenishment advisor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Store driver (postgres or memory)",
				EnvVars: []string{"STORE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			nightlyCommand(),
			alertsCommand(),
			detectCommand(),
			redetectCommand(),
			cleanMAPECommand(),
			importCommand("import-sales", "Import realized daily sales", "sales"),
			importCommand("import-stock", "Import stock snapshots", "stock"),
			migrateCommand(),
		},
	}

	// help does not need a database connection
	for _, cmd := range cliApp.Commands {
		cmd.Before = initApp
		cmd.After = closeApp
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
