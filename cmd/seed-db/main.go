// Command seed-db loads a demo wine catalog, a representative set of
// discounts, and an admin API key into the database.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vinoteca/promo-engine/internal/domain/discount"
	"github.com/vinoteca/promo-engine/internal/storage/postgres"
)

type seedProduct struct {
	id       string
	name     string
	price    string
	category string
}

var products = []seedProduct{
	{"VT-001", "Reserva Malbec 2019", "24.50", "Tinto"},
	{"VT-002", "Gran Corte Cabernet 2018", "38.00", "Tinto"},
	{"VT-003", "Crianza Tempranillo 2020", "15.90", "Tinto"},
	{"VT-004", "Albariño Rías Baixas 2022", "19.75", "Blanco"},
	{"VT-005", "Chardonnay Barrica 2021", "22.30", "Blanco"},
	{"VT-006", "Verdejo Joven 2023", "11.40", "Blanco"},
	{"VT-007", "Rosado Garnacha 2023", "13.80", "Rosado"},
	{"VT-008", "Brut Nature Reserva", "28.60", "Espumoso"},
	{"VT-009", "Moscatel Dulce", "16.20", "Dulce"},
}

type seedDiscount struct {
	name        string
	typ         discount.Type
	value       string
	maxAmount   string // empty means uncapped
	appliesTo   discount.AppliesTo
	targetValue string
	daysOfWeek  []int
}

var discounts = []seedDiscount{
	{
		name:      "Verano",
		typ:       discount.TypePercentage,
		value:     "20",
		appliesTo: discount.AppliesAllProducts,
	},
	{
		name:        "Semana del Tinto",
		typ:         discount.TypePercentage,
		value:       "15",
		maxAmount:   "5",
		appliesTo:   discount.AppliesCategory,
		targetValue: "Tinto",
	},
	{
		name:        "Pack Degustación",
		typ:         discount.TypeFixedAmount,
		value:       "4",
		appliesTo:   discount.AppliesSpecificProducts,
		targetValue: `["VT-004","VT-008"]`,
	},
	{
		name:       "Martes de Blancos",
		typ:        discount.TypePercentage,
		value:      "10",
		appliesTo:  discount.AppliesCategory,
		daysOfWeek:  []int{2},
		targetValue: "Blanco",
	},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDiscounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "price for %s", p.id)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO products (id, name, price, category)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category`,
			p.id, p.name, price, p.category)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.id)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) error {
	repo := postgres.NewDiscountRepository(pool)
	now := time.Now().UTC()

	for _, sd := range discounts {
		value, err := decimal.NewFromString(sd.value)
		if err != nil {
			return errors.Wrapf(err, "value for %q", sd.name)
		}

		var maxAmount *decimal.Decimal
		if sd.maxAmount != "" {
			v, err := decimal.NewFromString(sd.maxAmount)
			if err != nil {
				return errors.Wrapf(err, "max amount for %q", sd.name)
			}
			maxAmount = &v
		}

		scope, err := discount.ParseScope(sd.appliesTo, sd.targetValue)
		if err != nil {
			return errors.Wrapf(err, "scope for %q", sd.name)
		}
		days, err := discount.WeekdaysOf(sd.daysOfWeek)
		if err != nil {
			return errors.Wrapf(err, "days for %q", sd.name)
		}

		d := &discount.Discount{
			ID:                uuid.New().String(),
			Name:              sd.name,
			Type:              sd.typ,
			Value:             value,
			MinPurchaseAmount: decimal.Zero,
			MaxDiscountAmount: maxAmount,
			StartDate:         now.AddDate(0, 0, -1),
			EndDate:           now.AddDate(0, 3, 0),
			Active:            true,
			Scope:             scope,
			DaysOfWeek:        days,
			CreatedAt:         now,
		}
		if err := repo.Create(ctx, d); err != nil {
			return errors.Wrapf(err, "insert discount %q", sd.name)
		}
	}
	slog.Info("discounts seeded", slog.Int("count", len(discounts)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name, scopes, is_active)
		VALUES ($1, $2, 'seed-admin', '{admin}', TRUE)
		ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("api key seeded")
	return nil
}
