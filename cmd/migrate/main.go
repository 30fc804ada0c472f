// Package main provides the database migration CLI.
// Usage: migrate up
//        migrate down
//        migrate status
package main

import (
	"fmt"
	"os"
	"os/exec"

	"mystore/internal/config"
)

const migrationsDir = "db/migrations"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "up", "down", "status", "redo":
		runGoose(os.Args[1], os.Args[2:]...)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mystore migration CLI

Usage:
  migrate <command>

Commands:
  up       Apply all pending migrations
  down     Roll back the last migration
  redo     Roll back and reapply the last migration
  status   Show applied migrations
  help     Show this help

Environment Variables:
  DATABASE_URL   Connection string (required, may come from .env)

The goose binary must be on PATH.`)
}

func runGoose(command string, extra ...string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Println("Error: DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	args := append([]string{"-dir", migrationsDir, "postgres", cfg.DatabaseURL, command}, extra...)
	cmd := exec.Command("goose", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("Migration %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Migration %s completed\n", command)
}
