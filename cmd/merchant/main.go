// Command merchant keeps a live order board for one store, logging it every
// time it changes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"food-market/internal/client"
	"food-market/internal/config"
	"food-market/internal/model"
	"food-market/internal/reconcile"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.StoreID == "" {
		return fmt.Errorf("STORE_ID is required")
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(client.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
	}, logger)

	sub := client.NewSubscriber(client.SubscriberConfig{
		URL:     cfg.WebsocketURL(),
		StoreID: cfg.StoreID,
	}, api, logger)

	board := reconcile.NewMerchant(cfg.StoreID, api, logger)
	board.OnChange(func(orders []model.Order) {
		logBoard(logger, cfg.StoreID, orders)
	})

	logger.Info().Str("store_id", cfg.StoreID).Str("url", cfg.WebsocketURL()).Msg("watching store orders")

	if err := board.Run(ctx, sub); err != nil {
		return fmt.Errorf("order board stopped: %w", err)
	}
	return nil
}

func logBoard(logger zerolog.Logger, storeID string, orders []model.Order) {
	counts := make(map[model.Status]int)
	for _, order := range orders {
		counts[order.Status]++
	}

	logger.Info().
		Str("store_id", storeID).
		Int("orders", len(orders)).
		Int(string(model.StatusPending), counts[model.StatusPending]).
		Int(string(model.StatusPreparing), counts[model.StatusPreparing]).
		Int(string(model.StatusReady), counts[model.StatusReady]).
		Msg("order board updated")

	for _, order := range orders {
		if order.Status.IsTerminal() {
			continue
		}
		logger.Info().
			Str("order_number", order.OrderNumber).
			Str("status", string(order.Status)).
			Str("total", order.Total.StringFixed(2)).
			Time("created_at", order.CreatedAt).
			Msg("open order")
	}
}
