// Command gencodes mints activation codes and prints them to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mkowalcze/creditledger/internal/db"
	"github.com/mkowalcze/creditledger/internal/repository/postgres"
	"github.com/mkowalcze/creditledger/internal/service/activation"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating codes: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		databaseDSN string
		credits     int64
		count       int
	)

	fs := pflag.NewFlagSet("gencodes", pflag.ContinueOnError)
	fs.StringVarP(&databaseDSN, "database", "d", os.Getenv("DATABASE_URI"), "Database connection string")
	fs.Int64VarP(&credits, "credits", "c", 0, "Credits each code is worth")
	fs.IntVarP(&count, "count", "n", 1, "Number of codes to generate")

	if err := fs.Parse(args); err != nil {
		return err
	}

	pool, err := db.ConnectAndMigrate(ctx, databaseDSN)
	if err != nil {
		return fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	defer pool.Close()

	storage := postgres.NewStorage(pool)
	service := activation.NewService(storage, nil)

	codes, err := service.Generate(ctx, credits, count)
	if err != nil {
		return err
	}

	for _, code := range codes {
		fmt.Println(code)
	}

	return nil
}
