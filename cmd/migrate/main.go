// Command migrate manages the database schema and seeds sample data.
//
//	migrate up | down | to <version> | version | seed
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
	"github.com/uptrace/bun"

	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/database/migrations"
	"ms-travel-sales/internal/inventory"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"
)

func main() {
	dsn := flag.String("dsn", "", "override DB_DSN")
	driver := flag.String("driver", "", "override DB_DRIVER (postgres or sqlite)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up | down | to <version> | version | seed")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}

	log := logger.NewConsoleLogger(os.Stdout)
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if err := run(ctx, db, log, flag.Args()); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "Done")
}

func run(ctx context.Context, db *bun.DB, log *logger.Logger, args []string) error {
	if args[0] == "seed" {
		return seed(ctx, db, log)
	}

	if !database.IsPostgres(db) {
		switch args[0] {
		case "up":
			return database.CreateSchema(ctx, db)
		case "down":
			return database.DropSchema(ctx, db)
		default:
			return fmt.Errorf("%q is only supported on postgres", args[0])
		}
	}

	runner := migrations.NewRunner(db, log)
	if err := runner.Initialize(); err != nil {
		return err
	}
	defer runner.Close()

	switch args[0] {
	case "up":
		return runner.MigrateUp()
	case "down":
		return runner.MigrateDown()
	case "to":
		if len(args) < 2 {
			return fmt.Errorf("to needs a version")
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return runner.MigrateTo(uint(v))
	case "version":
		v, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		log.Info("MIGRATE", fmt.Sprintf("version %d dirty=%t", v, dirty))
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// seed creates sample destinations with two departures each. Every departure
// gets its ticket pool.
func seed(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	svc := inventory.NewService(db, nil, nil, log)
	staff := models.Actor{UserID: "seed", Role: models.RoleAdmin}

	samples := []inventory.DestinationInput{
		{Name: "Havana", Description: "Old town and beaches", Transport: models.TransportAir,
			GeneralPrice: decimal.NewFromInt(100), VIPPrice: decimal.NewFromInt(250)},
		{Name: "Cartagena", Description: "Caribbean port", Transport: models.TransportSea,
			GeneralPrice: decimal.NewFromInt(80), VIPPrice: decimal.NewFromInt(180)},
	}

	first := time.Now().UTC().Truncate(time.Hour).Add(7 * 24 * time.Hour)
	for _, in := range samples {
		dest, err := svc.CreateDestination(ctx, staff, in)
		if err != nil {
			return fmt.Errorf("seed %s: %w", in.Name, err)
		}
		for i := 0; i < 2; i++ {
			if _, err := svc.CreateSchedule(ctx, staff, dest.ID, first.Add(time.Duration(i)*24*time.Hour)); err != nil {
				return fmt.Errorf("seed schedule for %s: %w", in.Name, err)
			}
		}
	}
	return nil
}
