// Package main is a lookup tool for the loyalty points leaderboard.
// It fetches the first page of ranks for a space and prints, per
// entry, whether the entry's address matches the one given.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gatepass/gatepass/internal/leaderboard"
)

// config is populated from environment variables.
type config struct {
	Endpoint string `env:"LEADERBOARD_ENDPOINT" envDefault:"https://graphigo.prd.galaxy.eco/query"`
	Token    string `env:"LEADERBOARD_TOKEN,required"`
	SpaceID  int    `env:"LEADERBOARD_SPACE_ID,required"`
	SprintID string `env:"LEADERBOARD_SPRINT_ID"`
	Address  string `env:"LEADERBOARD_ADDRESS,required"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		logger.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := leaderboard.New(cfg.Endpoint, cfg.Token)

	matches, err := client.CheckAddress(ctx, cfg.SpaceID, cfg.SprintID, cfg.Address)
	if err != nil {
		logger.Error("leaderboard lookup failed", "error", err)
		os.Exit(1)
	}

	found := false
	for i, match := range matches {
		fmt.Printf("entry %d: %t\n", i, match)
		if match {
			found = true
		}
	}

	if !found {
		logger.Info("address not on the first page",
			"address", cfg.Address,
			"entries", len(matches),
		)
		os.Exit(2)
	}
}
