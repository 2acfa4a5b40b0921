// Command catalog-ingest bulk-imports gzipped CSV product feeds
// (id,name,price,category per line). Supplier feeds overlap: the same product
// can appear in several shards, so a per-shard bloom filter is built first
// and later shards skip ids already claimed by an earlier one. Records are
// written with COPY for throughput.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vinoteca/promo-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	copyBatchSize = 5_000
)

type record struct {
	id       string
	name     string
	price    decimal.Decimal
	category string
}

func main() {
	var (
		dataDir     string
		shards      int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalogN.csv.gz shards")
	flag.IntVar(&shards, "shards", 3, "number of catalog shards to ingest")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, shards, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, shards int, databaseURL string) error {
	files := make([]string, shards)
	for i := range files {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("catalog%d.csv.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: per-shard bloom filters, built concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("shards", shards))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: stream shards in order; a shard skips ids an earlier shard's
	// filter claims. A bloom false positive only drops a record that another
	// shard also carries, never corrupts one.
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var total int64
	for i, f := range files {
		n, err := ingestShard(ctx, pool, f, filters[:i])
		if err != nil {
			return errors.Wrapf(err, "ingest shard %d", i+1)
		}
		slog.Info("shard ingested", slog.Int("shard", i+1), slog.Int64("products", n))
		total += n
	}

	slog.Info("all shards ingested", slog.Int64("products", total))
	return nil
}

// buildBloomFilters creates one bloom filter of product ids per shard.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForShard(ctx, i, f, filters))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func buildFilterForShard(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamShard(ctx, path, func(rec record) error {
			filter.AddString(rec.id)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("shard", idx+1),
					slog.Uint64("products", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "build filter for shard %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("shard", idx+1),
			slog.Uint64("total_products", count),
		)

		filters[idx] = filter
		return nil
	}
}

// ingestShard streams one shard and copies its unclaimed records into the
// products table in batches.
func ingestShard(ctx context.Context, pool *pgxpool.Pool, path string, earlier []*bloom.BloomFilter) (int64, error) {
	var (
		batch []record
		total int64
		seen  = make(map[string]struct{})
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := make([][]any, len(batch))
		for i, rec := range batch {
			rows[i] = []any{rec.id, rec.name, rec.price, rec.category}
		}
		n, err := pool.CopyFrom(ctx,
			pgx.Identifier{"products"},
			[]string{"id", "name", "price", "category"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrap(err, "copy batch")
		}
		total += n
		batch = batch[:0]
		return nil
	}

	err := streamShard(ctx, path, func(rec record) error {
		if _, dup := seen[rec.id]; dup {
			return nil
		}
		for _, f := range earlier {
			if f.TestString(rec.id) {
				return nil
			}
		}
		seen[rec.id] = struct{}{}
		batch = append(batch, rec)
		if len(batch) >= copyBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

// streamShard decompresses path and invokes fn for every well-formed CSV
// line. Malformed lines are skipped with a warning; a feed glitch should not
// abort a multi-million row import.
func streamShard(ctx context.Context, path string, fn func(record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var line uint64
	for scanner.Scan() {
		line++
		if line%progressEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		rec, err := parseLine(scanner.Text())
		if err != nil {
			slog.Warn("skipping malformed line",
				slog.String("file", path),
				slog.Uint64("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "scan")
}

func parseLine(line string) (record, error) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return record{}, errors.Errorf("expected 4 fields, got %d", len(parts))
	}
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return record{}, errors.New("empty id")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return record{}, errors.Wrap(err, "price")
	}
	if price.IsNegative() {
		return record{}, errors.New("negative price")
	}
	return record{
		id:       id,
		name:     strings.TrimSpace(parts[1]),
		price:    price,
		category: strings.TrimSpace(parts[3]),
	}, nil
}
