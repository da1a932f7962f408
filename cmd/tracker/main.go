// Command tracker follows one order until it is completed or cancelled.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"food-market/internal/client"
	"food-market/internal/config"
	"food-market/internal/model"
	"food-market/internal/reconcile"

	"github.com/google/uuid"
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

	rawID := cfg.OrderID
	if len(os.Args) > 1 {
		rawID = os.Args[1]
	}
	orderID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("an order id is required as ORDER_ID or the first argument: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(client.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
	}, logger)

	tracker := reconcile.NewCustomer(orderID, api, reconcile.CustomerConfig{Interval: cfg.PollInterval}, logger)
	tracker.OnChange(func(order model.Order) {
		event := logger.Info().
			Str("order_number", order.OrderNumber).
			Str("status", string(order.Status)).
			Int("version", order.Version)
		if order.DeliveredAt != nil {
			event = event.Time("delivered_at", *order.DeliveredAt)
		}
		event.Msg("order status")
	})

	if err := tracker.Run(ctx); err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return fmt.Errorf("order %s does not exist", orderID)
		}
		return fmt.Errorf("tracking stopped: %w", err)
	}
	return nil
}
