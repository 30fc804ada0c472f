// Package main seeds the database with demo customers and products and
// prints an admin bearer token for trying out the API. Rows that already
// exist are skipped; each insert runs in its own savepoint.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mystore/internal/app"
	"mystore/internal/config"
	"mystore/internal/core/apperror"
	appctx "mystore/internal/core/context"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain/auth"
	"mystore/internal/domain/customer"
	"mystore/internal/domain/inventory"
	"mystore/internal/domain/sales"
	"mystore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer a.Close()
	log.Info("connected to database")

	admin := appctx.UserContext{
		UserID:  envOr("ADMIN_USER_ID", "admin"),
		Email:   envOr("ADMIN_EMAIL", "admin@mystore.local"),
		Roles:   []string{auth.RoleAdmin},
		IsAdmin: true,
	}
	ctx = appctx.WithUser(ctx, &admin)

	now := time.Now().UTC()
	var customers []id.ID
	var products []*inventory.Product
	err = a.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if customers, err = seedCustomers(ctx, a, now, log); err != nil {
			return fmt.Errorf("seed customers: %w", err)
		}
		if products, err = seedProducts(ctx, a, now, log); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" && len(customers) > 0 && len(products) > 1 {
		if err := seedDemoSale(ctx, a, customers[0], products, log); err != nil {
			log.Fatalw("failed to seed demo sale", "error", err)
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	jwtCfg := auth.DefaultJWTConfig(secret)
	jwtCfg.AccessTokenTTL = 24 * time.Hour
	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(admin)
	if err != nil {
		log.Fatalw("failed to issue admin token", "error", err)
	}

	log.Info("seeding completed successfully")
	fmt.Printf("\nAdmin token (expires %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isConflict(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	return ok && appErr.Code == apperror.CodeConflict
}

func seedCustomers(ctx context.Context, a *app.App, now time.Time, log *logger.Logger) ([]id.ID, error) {
	demo := []customer.Customer{
		{FirstName: "Anna", LastName: "Novak", Email: "anna@example.com", City: "Prague", Country: "CZ"},
		{FirstName: "Ben", LastName: "Okafor", Email: "ben@example.com", City: "Lagos", Country: "NG"},
		{FirstName: "Chen", LastName: "Li", Email: "chen@example.com", City: "Taipei", Country: "TW"},
	}

	ids := make([]id.ID, 0, len(demo))
	for i := range demo {
		c := demo[i]
		c.ID = id.New()
		c.CreatedAt = now
		c.UpdatedAt = now
		err := a.TxManager.Savepoint(ctx, func(ctx context.Context) error {
			return a.Customers.Create(ctx, &c)
		})
		if err != nil {
			if isConflict(err) {
				log.Infow("customer already exists, skipping", "email", c.Email)
				continue
			}
			return nil, fmt.Errorf("create customer %s: %w", c.Email, err)
		}
		ids = append(ids, c.ID)
		log.Infow("customer created", "id", c.ID, "name", c.FullName())
	}
	return ids, nil
}

func seedProducts(ctx context.Context, a *app.App, now time.Time, log *logger.Logger) ([]*inventory.Product, error) {
	demo := []inventory.Product{
		{Name: "Green tea 100g", SKU: "TEA-100", Price: types.MustMoney("4.50"), Stock: 40},
		{Name: "Espresso beans 1kg", SKU: "COF-1000", Price: types.MustMoney("21.90"), Stock: 3},
		{Name: "Ceramic mug", SKU: "MUG-01", Price: types.MustMoney("9.00"), Stock: 0},
	}

	out := make([]*inventory.Product, 0, len(demo))
	for i := range demo {
		p := demo[i]
		p.ID = id.New()
		p.IsActive = true
		p.CreatedAt = now
		p.UpdatedAt = now
		err := a.TxManager.Savepoint(ctx, func(ctx context.Context) error {
			return a.Products.Create(ctx, &p)
		})
		if err != nil {
			if isConflict(err) {
				log.Infow("product already exists, skipping", "sku", p.SKU)
				continue
			}
			return nil, fmt.Errorf("create product %s: %w", p.SKU, err)
		}
		out = append(out, &p)
		log.Infow("product created", "id", p.ID, "sku", p.SKU, "stock", p.Stock)
	}
	return out, nil
}

// seedDemoSale oversells the second product so the disclosure shows up.
func seedDemoSale(ctx context.Context, a *app.App, customerID id.ID, products []*inventory.Product, log *logger.Logger) error {
	first, second := products[0].ID, products[1].ID
	res, err := a.Sales.Create(ctx, sales.CreateInput{
		CustomerID:    &customerID,
		PaymentMethod: sales.PaymentCard,
		Notes:         "demo sale",
		Items: []sales.ItemInput{
			{ProductID: &first, Quantity: 2},
			{ProductID: &second, Quantity: products[1].Stock + 2},
		},
	})
	if err != nil {
		return err
	}
	log.Infow("demo sale created",
		"id", res.Sale.ID,
		"total", types.FormatMoney(res.Sale.TotalAmount),
		"out_of_stock", len(res.OutOfStock),
	)
	return nil
}
