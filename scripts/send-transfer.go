//go:build ignore

// send-transfer.go - Submit a transfer through a running ledger by hand
//
// Usage:
//   go run scripts/send-transfer.go -config config.yaml \
//     -to "example.red.alice" \
//     -amount "10"
//
// Optionally attach a condition and expiry to prepare instead of executing:
//   go run scripts/send-transfer.go -config config.yaml \
//     -to "example.red.alice" -amount "10" \
//     -condition "cc:0:3:vmvf6B7EpFalN6RGDx9F4f4z0wtOIgsIdCmbgv06ceI:7" \
//     -expires-at "2026-09-01T12:00:00.000Z"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/interledger-go/plugin-bells/pkg/bells"
	"github.com/interledger-go/plugin-bells/pkg/config"
	"github.com/interledger-go/plugin-bells/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	to := flag.String("to", "", "destination local address")
	amount := flag.String("amount", "", "transfer amount (decimal string)")
	condition := flag.String("condition", "", "optional execution condition")
	expiresAt := flag.String("expires-at", "", "optional expiry (ISO 8601)")
	flag.Parse()

	if *to == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "both -to and -amount are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	p := plugin.New(plugin.Config{
		Prefix:    cfg.Plugin.Prefix,
		Account:   cfg.Plugin.Account,
		Username:  cfg.Plugin.Username,
		Password:  cfg.Plugin.Password,
		Connector: cfg.Plugin.Connector,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer p.Disconnect()

	transfer := &bells.PluginTransfer{
		Account:            *to,
		Amount:             *amount,
		ExecutionCondition: *condition,
		ExpiresAt:          *expiresAt,
	}
	if err := p.Send(ctx, transfer); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("transfer %s submitted: %s -> %s\n", transfer.ID, *amount, *to)
}
