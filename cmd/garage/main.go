// Package main provides CLI for garage management.
// Usage: garage create --slug centro --name "Oficina Centro"
//        garage list
//        garage suspend <garage-id>
//        garage activate <garage-id>
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"oficina/internal/config"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		createGarage(ctx)
	case "list":
		listGarages(ctx)
	case "suspend":
		setStatus(ctx, tenant.StatusSuspended)
	case "activate":
		setStatus(ctx, tenant.StatusActive)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Oficina Garage Management CLI

Usage:
  garage <command> [options]

Commands:
  create    Create a new garage
  list      List all garages
  suspend   Suspend a garage (its staff tokens stop working)
  activate  Activate a suspended garage
  help      Show this help

Environment Variables:
  DATABASE_URL    Connection string (required, may come from .env)

Examples:
  garage create --slug centro --name "Oficina Centro"
  garage list
  garage suspend <garage-uuid>
  garage activate <garage-uuid>`)
}

func getPool(ctx context.Context) *pgxpool.Pool {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	return pool
}

func createGarage(ctx context.Context) {
	var slug, name string

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--slug":
			if i+1 < len(os.Args) {
				slug = os.Args[i+1]
				i++
			}
		case "--name":
			if i+1 < len(os.Args) {
				name = os.Args[i+1]
				i++
			}
		}
	}

	if slug == "" || name == "" {
		fmt.Println("Error: --slug and --name are required")
		fmt.Println("Usage: garage create --slug <slug> --name <name>")
		os.Exit(1)
	}

	pool := getPool(ctx)
	defer pool.Close()

	g := &tenant.Garage{
		Slug:        strings.ToLower(slug),
		DisplayName: name,
		Status:      tenant.StatusActive,
	}
	if err := tenant.NewPostgresRegistry(pool).Create(ctx, g); err != nil {
		fmt.Printf("Error creating garage: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Garage '%s' ready\n", g.Slug)
	fmt.Printf("  Garage ID: %s\n", g.ID)
}

func listGarages(ctx context.Context) {
	pool := getPool(ctx)
	defer pool.Close()

	garages, err := tenant.NewPostgresRegistry(pool).ListAll(ctx)
	if err != nil {
		fmt.Printf("Error listing garages: %v\n", err)
		os.Exit(1)
	}

	if len(garages) == 0 {
		fmt.Println("No garages found")
		return
	}

	fmt.Printf("%-36s %-20s %-30s %-10s\n", "GARAGE_ID", "SLUG", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 99))

	for _, g := range garages {
		fmt.Printf("%-36s %-20s %-30s %-10s\n",
			g.ID,
			truncate(g.Slug, 20),
			truncate(g.DisplayName, 30),
			g.Status,
		)
	}
}

func setStatus(ctx context.Context, status tenant.Status) {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: garage %s <garage-uuid>\n", os.Args[1])
		os.Exit(1)
	}

	garageID, err := id.ParseRequired(os.Args[2])
	if err != nil {
		fmt.Printf("Error: invalid garage id %q\n", os.Args[2])
		os.Exit(1)
	}

	pool := getPool(ctx)
	defer pool.Close()

	if err := tenant.NewPostgresRegistry(pool).SetStatus(ctx, garageID, status); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Garage '%s' is now %s\n", garageID, status)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
