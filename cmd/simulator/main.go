package main

import (
	"context"
	"log"
	"time"

	"inkframe/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumUsers:         10,
		SimulationTime:   10 * time.Minute,
		PostFrequency:    100.0,
		CommentFrequency: 60.0,
		EditFrequency:    30.0,
		SignOutRate:      0.01,
		SignInRate:       0.05,
		ZipfS:            1.07,
		ServerURL:        "http://localhost:8080",
	}

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Server URL: %s", config.ServerURL)
	log.Printf("- Number of users: %d", config.NumUsers)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Post frequency: %.2f posts/user/hour", config.PostFrequency)
	log.Printf("- Comment frequency: %.2f comments/user/hour", config.CommentFrequency)
	log.Printf("- Edit frequency: %.2f edits/user/hour", config.EditFrequency)
	log.Printf("- Sign-out rate: %.2f", config.SignOutRate)
	log.Printf("- Sign-in rate: %.2f", config.SignInRate)
	log.Printf("- Zipf parameter: %.2f", config.ZipfS)

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total users: %d", metrics.TotalUsers)
	log.Printf("- Signed-in users at end: %d", metrics.SignedInUsers)
	log.Printf("- Total posts: %d", metrics.TotalPosts)
	log.Printf("- Total comments: %d", metrics.TotalComments)
	log.Printf("- Total edits: %d", metrics.TotalEdits)
	log.Printf("- Error count: %d", metrics.ErrorCount)
}
