// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pollcore/cliparse"
	"pollcore/events"
	"pollcore/notify"
	"pollcore/polls"
	"pollcore/store"
)

// main wires the poll engine: config, store, fan-out publisher, and
// notifier. Transports embed polls.Service as a library; running this
// binary directly validates a deployment's configuration and keeps the
// store and publisher connections open until interrupted, which makes it
// a usable connectivity smoke check.
func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the poll store (creates the schema, verifies the connection)
	st, err := store.Open(cfg)
	if err != nil {
		slog.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("Poll store ready", "type", cfg.DatabaseType)

	// Select the fan-out publisher the config asks for
	ctx := context.Background()
	pub, err := events.NewFromConfig(ctx, cfg)
	if err != nil {
		slog.Error("publisher setup failed", "error", err)
		os.Exit(1)
	}
	if closer, ok := pub.(io.Closer); ok {
		defer closer.Close()
	}
	slog.Info("Fan-out publisher ready", "publisher", cfg.Publisher)

	_ = polls.NewService(st, pub, notify.Log{}, cfg)
	slog.Info("Poll engine ready")

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	<-ctrlc
	slog.Info("Shutting down")
}
