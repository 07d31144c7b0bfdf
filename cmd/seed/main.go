// Package main bootstraps a garage with a staff user, a vehicle and a few
// stocked parts. Running it twice is harmless.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"oficina/internal/config"
	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/auth"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/numerator"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/storage/postgres/auth_repo"
	"oficina/internal/infrastructure/storage/postgres/inventory_repo"
	"oficina/internal/infrastructure/storage/postgres/serviceorder_repo"
	"oficina/pkg/logger"
)

type demoPart struct {
	code, name, unit string
	cost, price      int64
	stock, minimum   int
}

var demoParts = []demoPart{
	{"FLT-OL-01", "Filtro de óleo", "UN", 18, 35, 20, 5},
	{"OLE-5W30", "Óleo 5W30 sintético", "L", 32, 55, 40, 10},
	{"PST-FR-01", "Pastilha de freio dianteira", "JG", 65, 120, 8, 2},
	{"VEL-IR-04", "Vela de ignição iridium", "UN", 42, 79, 16, 4},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "oficina-seed"
	poolCfg.MaxConns = 2
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	garage, err := seedGarage(ctx, tenant.NewPostgresRegistry(pool.Unwrap()), log)
	if err != nil {
		log.Fatalw("failed to seed garage", "error", err)
	}
	ctx = tenant.WithGarage(ctx, garage)

	authService := auth.NewService(auth_repo.NewUserRepo(txManager), nil, auth.DefaultServiceConfig())
	if err := seedAdminUser(ctx, authService, auth_repo.NewUserRepo(txManager), garage, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if last := os.Getenv("SEED_LAST_ORDER_NUMBER"); last != "" {
		if err := numerator.New(txManager).SetLast(ctx, garage, last); err != nil {
			log.Fatalw("failed to set order sequence", "error", err)
		}
		log.Infow("order sequence moved", "last", last)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedVehicle(ctx, serviceorder_repo.NewVehicleLookup(txManager), garage, log); err != nil {
			log.Fatalw("failed to seed vehicle", "error", err)
		}
		inv := inventory.NewService(inventory_repo.NewStore(txManager), txManager, postgres.NewOutboxPublisher(txManager), nil)
		if err := seedParts(ctx, inv, log); err != nil {
			log.Fatalw("failed to seed parts", "error", err)
		}
	}

	log.Infow("seeding completed successfully", "garage_id", garage.String())
}

func seedGarage(ctx context.Context, registry tenant.Registry, log *logger.Logger) (tenant.GarageID, error) {
	g := &tenant.Garage{
		Slug:        getEnv("GARAGE_SLUG", "demo"),
		DisplayName: getEnv("GARAGE_NAME", "Oficina Demo"),
		Status:      tenant.StatusActive,
	}
	if err := registry.Create(ctx, g); err != nil {
		return tenant.GarageID{}, err
	}
	log.Infow("garage ready", "slug", g.Slug, "garage_id", g.ID)
	return g.Scope(), nil
}

func seedAdminUser(ctx context.Context, svc *auth.Service, users auth.UserRepository, garage tenant.GarageID, log *logger.Logger) error {
	email := getEnv("ADMIN_EMAIL", "admin@oficina.local")
	password := getEnv("ADMIN_PASSWORD", "Admin123!")

	if existing, err := users.GetByEmail(ctx, email); err == nil {
		log.Infow("admin user already exists", "email", existing.Email, "user_id", existing.ID)
		return nil
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	hash, err := svc.HashPassword(password)
	if err != nil {
		return err
	}
	u := auth.NewUser(garage.UUID(), email, hash)
	u.Name = "Administrador"
	u.IsAdmin = true
	u.Roles = []string{"admin"}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	log.Infow("admin user created", "email", u.Email, "user_id", u.ID)
	return nil
}

func seedVehicle(ctx context.Context, vehicles *serviceorder_repo.VehicleLookup, garage tenant.GarageID, log *logger.Logger) error {
	v := &serviceorder.Vehicle{ID: id.New(), Plate: "BRA2E19", Model: "Fiat Argo 1.3"}
	if err := vehicles.CreateVehicle(ctx, garage, v); err != nil {
		if postgres.IsUniqueViolation(err) {
			log.Infow("demo vehicle already exists", "plate", v.Plate)
			return nil
		}
		return err
	}
	log.Infow("demo vehicle created", "vehicle_id", v.ID, "plate", v.Plate)
	return nil
}

func seedParts(ctx context.Context, inv *inventory.Service, log *logger.Logger) error {
	for _, dp := range demoParts {
		p := inventory.NewPart(dp.code, dp.name)
		p.Unit = dp.unit
		p.CostPrice = decimal.NewFromInt(dp.cost)
		p.SellingPrice = decimal.NewFromInt(dp.price)
		p.MinimumStock = dp.minimum

		created, err := inv.CreatePart(ctx, p)
		if err != nil {
			if apperror.HasCode(err, apperror.CodeDuplicate) {
				log.Infow("part already exists", "code", dp.code)
				continue
			}
			return fmt.Errorf("create part %s: %w", dp.code, err)
		}

		_, err = inv.CreateEntry(ctx, inventory.NewEntry{
			PartID:       created.ID,
			Quantity:     dp.stock,
			CostPrice:    decimal.NewFromInt(dp.cost),
			SellingPrice: decimal.NewFromInt(dp.price),
			Description:  "Estoque inicial",
		})
		if err != nil {
			return fmt.Errorf("stock part %s: %w", dp.code, err)
		}
		log.Infow("part seeded", "code", dp.code, "stock", dp.stock)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
