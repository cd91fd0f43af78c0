//go:build ignore

// watch-transfers.go - Subscribe to an account's transfer stream and print
// every lifecycle event as it arrives. Useful for checking ledger
// connectivity and notification delivery by hand.
//
// Usage:
//   go run scripts/watch-transfers.go -config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/interledger-go/plugin-bells/pkg/bells"
	"github.com/interledger-go/plugin-bells/pkg/config"
	"github.com/interledger-go/plugin-bells/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	p := plugin.New(plugin.Config{
		Prefix:   cfg.Plugin.Prefix,
		Account:  cfg.Plugin.Account,
		Username: cfg.Plugin.Username,
		Password: cfg.Plugin.Password,
	})

	kinds := []plugin.EventKind{
		plugin.IncomingPrepare, plugin.OutgoingPrepare,
		plugin.IncomingTransfer, plugin.OutgoingTransfer,
		plugin.IncomingFulfill, plugin.OutgoingFulfill,
		plugin.IncomingCancel, plugin.OutgoingCancel,
		plugin.IncomingReject, plugin.OutgoingReject,
	}
	for _, kind := range kinds {
		kind := kind
		p.Subscribe(kind, func(transfer *bells.PluginTransfer, detail string) {
			if detail != "" {
				fmt.Printf("%s %s %s %s (%s)\n", kind, transfer.ID, transfer.Account, transfer.Amount, detail)
				return
			}
			fmt.Printf("%s %s %s %s\n", kind, transfer.ID, transfer.Account, transfer.Amount)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer p.Disconnect()

	fmt.Printf("watching %s (prefix %s)\n", cfg.Plugin.Account, cfg.Plugin.Prefix)
	<-ctx.Done()
}
