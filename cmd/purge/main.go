// Package main is the administrative sale purge: it deletes sales (all of
// them or those of one day), returns their stock and handles the linked
// out-of-stock records.
//
// Usage: purge -confirm [-date 2024-12-03] [-keep-disclosures]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mystore/internal/app"
	"mystore/internal/config"
	"mystore/internal/domain/sales"
	"mystore/pkg/logger"
)

func main() {
	date := flag.String("date", "", "only purge sales of this day (YYYY-MM-DD); empty purges every sale")
	keep := flag.Bool("keep-disclosures", false, "detach out-of-stock records instead of deleting them")
	confirm := flag.Bool("confirm", false, "required; without it nothing is deleted")
	flag.Parse()

	filter, err := buildFilter(*date, *keep, flagSet("keep-disclosures"))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}
	if !*confirm {
		fmt.Println("Refusing to purge without -confirm")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development(), Service: "mystore-purge"})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	res, err := a.Sales.Purge(ctx, filter)
	if err != nil {
		log.Errorw("purge failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	fmt.Printf("Deleted %d sales (%d items), restored %d units\n", res.Sales, res.Items, res.RestoredUnits)
	fmt.Printf("Out-of-stock records: %d deleted, %d kept\n", res.OutOfStockDeleted, res.OutOfStockKept)
}

// buildFilter turns the flags into a purge filter. keepSet tells whether
// -keep-disclosures was given; otherwise the configured default applies.
func buildFilter(date string, keep, keepSet bool) (sales.PurgeFilter, error) {
	var f sales.PurgeFilter
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return f, fmt.Errorf("invalid -date %q, want YYYY-MM-DD", date)
		}
		f.Date = &day
	}
	if keepSet {
		f.KeepDisclosures = &keep
	}
	return f, nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
