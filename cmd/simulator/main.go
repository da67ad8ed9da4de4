package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"bayou-board/simulator"

	"github.com/lmittmann/tint"
)

func main() {
	var (
		engineURL  = flag.String("url", "http://localhost:8080", "engine base URL")
		users      = flag.Int("users", 10, "number of simulated users")
		subreddits = flag.Int("subreddits", 5, "number of communities")
		duration   = flag.Duration("duration", 10*time.Minute, "simulation run time")
	)
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	config := simulator.SimConfig{
		NumUsers:         *users,
		NumSubreddits:    *subreddits,
		SimulationTime:   *duration,
		PostFrequency:    100.0,
		CommentFrequency: 60.0,
		VoteFrequency:    100.0,
		ZipfS:            1.07,
		EngineURL:        *engineURL,
	}

	sim := simulator.New(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	stats := sim.Stats()
	slog.Info("simulation completed",
		"posts", atomic.LoadInt64(&stats.TotalPosts),
		"comments", atomic.LoadInt64(&stats.TotalComments),
		"votes", atomic.LoadInt64(&stats.TotalVotes),
		"avg_latency", stats.AverageLatency())
}
