// Command promo-ingest loads partner promotion dumps into the rule store.
//
// Each dump is a gzip-compressed JSONL file where every line carries a
// product barcode and a promotion tag ("1+1", "2+1"). Dumps from different
// partners overlap and contain noise; a barcode is only trusted when it
// appears in at least two dumps. The cross-check runs in two passes: pass 1
// builds one bloom filter per file, pass 2 re-streams each file and tests
// candidates against the other files' filters.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/repository"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 5_000_000
	barcodeLen    = 13
)

// promoEntry is one parsed dump line.
type promoEntry struct {
	barcode string
	promo   string
}

// promoRules maps the partner promotion tags to rule templates.
var promoRules = map[string]struct {
	id      string
	name    string
	formula discount.BuyNGetM
}{
	"1+1": {id: "promo-1p1", name: "1+1 행사", formula: discount.BuyNGetM{Buy: 1, Get: 1}},
	"2+1": {id: "promo-2p1", name: "2+1 행사", formula: discount.BuyNGetM{Buy: 2, Get: 1}},
}

// fileResult holds candidate barcodes found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
	promos     map[string]string
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promobaseN.gz files")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("promobase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find barcodes appearing in 2+ dumps.
	slog.Info("pass 2: finding confirmed barcodes")

	confirmed, err := findConfirmedBarcodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed barcodes")
	}

	slog.Info("confirmed barcodes found", slog.Int("count", len(confirmed)))

	if len(confirmed) == 0 {
		slog.Info("no confirmed barcodes to ingest")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writePromotionRules(ctx, repository.NewRuleRepository(pool), confirmed); err != nil {
		return errors.Wrap(err, "write promotion rules")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently. The
// filters hold barcodes only; the promotion tag is re-read in pass 2.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(e promoEntry) {
			if len(e.barcode) != barcodeLen {
				return
			}
			filter.AddString(e.barcode)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("barcodes", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_barcodes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedBarcodes re-streams each file and checks barcodes against the
// OTHER files' bloom filters. A barcode is confirmed when it appears in 2 or
// more dumps. Returns barcode -> promotion tag.
func findConfirmedBarcodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-file bitmasks.
	merged := make(map[string]uint)
	promos := make(map[string]string)
	for _, r := range results {
		for barcode, mask := range r.candidates {
			merged[barcode] |= mask
			if _, ok := promos[barcode]; !ok {
				promos[barcode] = r.promos[barcode]
			}
		}
	}

	confirmed := make(map[string]string)
	for barcode, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed[barcode] = promos[barcode]
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		promos := make(map[string]string)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(e promoEntry) {
			if len(e.barcode) != barcodeLen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("barcodes", count),
				)
			}

			// Keep the barcode only if some OTHER dump saw it too.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(e.barcode) {
					candidates[e.barcode] |= fileBit
					promos[e.barcode] = e.promo
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_barcodes", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates, promos: promos}
		return nil
	}
}

// streamGzFile opens a gzip-compressed JSONL file and calls fn for each
// well-formed line. Malformed lines are skipped.
func streamGzFile(ctx context.Context, path string, fn func(promoEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e, ok := parseLine(scanner.Bytes()); ok {
			fn(e)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// parseLine decodes one dump line: {"barcode":"8801234500011","promo":"1+1"}.
func parseLine(line []byte) (promoEntry, bool) {
	var e promoEntry
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "barcode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			e.barcode = v
		case "promo":
			v, err := d.Str()
			if err != nil {
				return err
			}
			e.promo = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil || e.barcode == "" || e.promo == "" {
		return promoEntry{}, false
	}
	return e, true
}

// writePromotionRules groups the confirmed barcodes by promotion tag and
// upserts one promotion rule per tag, with the barcodes as its scope.
func writePromotionRules(ctx context.Context, rules *repository.RuleRepository, confirmed map[string]string) error {
	byPromo := make(map[string][]string)
	for barcode, promo := range confirmed {
		byPromo[promo] = append(byPromo[promo], barcode)
	}

	for promo, barcodes := range byPromo {
		tmpl, ok := promoRules[promo]
		if !ok {
			slog.Warn("skipping unknown promotion tag",
				slog.String("promo", promo),
				slog.Int("barcodes", len(barcodes)),
			)
			continue
		}

		sort.Strings(barcodes)

		rule := discount.Rule{
			ID:         tmpl.id,
			Name:       tmpl.name,
			Category:   discount.CategoryPromotion,
			Formula:    tmpl.formula,
			Method:     discount.MethodPerItem,
			ProductIDs: barcodes,
			Active:     true,
		}
		if err := rules.Upsert(ctx, &rule); err != nil {
			return errors.Wrapf(err, "upsert promotion rule %s", tmpl.id)
		}

		slog.Info("upserted promotion rule",
			slog.String("id", tmpl.id),
			slog.Int("barcodes", len(barcodes)),
		)
	}

	return nil
}
