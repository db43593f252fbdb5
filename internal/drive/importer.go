package drive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/rs/zerolog/log"
)

// Kind selects the layout of an imported file
type Kind string

const (
	KindSales Kind = "sales"
	KindStock Kind = "stock"
)

const maxReportedRowErrors = 20

var requiredColumns = map[Kind][]string{
	KindSales: {"product_id", "date", "quantity"},
	KindStock: {"product_id", "recorded_at", "quantity_on_hand"},
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "02/01/2006"}

// ImportResult reports one imported file. Bad rows are skipped, not fatal.
type ImportResult struct {
	Source   string   `json:"source"`
	Kind     Kind     `json:"kind"`
	Rows     int      `json:"rows"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *ImportResult) skip(line int, format string, args ...interface{}) {
	r.Skipped++
	if len(r.Errors) < maxReportedRowErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
	}
}

// CacheInvalidator drops cached forecasts once new sales are known
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, productID int64) error
}

// Importer loads realized sales and stock snapshots from CSV or XLSX files
type Importer struct {
	source   FileSource
	products repository.ProductRepository
	sales    repository.SalesRepository
	cache    CacheInvalidator
}

// NewImporter builds an importer. source may be nil when only readers are imported.
func NewImporter(source FileSource, store repository.Store, cache CacheInvalidator) *Importer {
	return &Importer{
		source:   source,
		products: store.Products,
		sales:    store.Sales,
		cache:    cache,
	}
}

// Import parses one file and upserts its rows. Sales of the same product and day are summed.
func (im *Importer) Import(ctx context.Context, kind Kind, name string, r io.Reader) (*ImportResult, error) {
	required, ok := requiredColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}
	records, err := readRecords(name, r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}

	cols := make(map[string]int)
	for i, col := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	catalog, err := im.catalog(ctx)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Source: name, Kind: kind, Rows: len(records) - 1}
	switch kind {
	case KindSales:
		err = im.importSales(ctx, records[1:], cols, catalog, res)
	case KindStock:
		err = im.importStock(ctx, records[1:], cols, catalog, res)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source", name).
		Str("kind", string(kind)).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("File imported")
	return res, nil
}

// ImportFolder imports every CSV and XLSX file of a Drive folder
func (im *Importer) ImportFolder(ctx context.Context, kind Kind, folderID string) ([]*ImportResult, error) {
	if im.source == nil {
		return nil, fmt.Errorf("no drive source configured")
	}
	files, err := im.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var results []*ImportResult
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		var buf bytes.Buffer
		if err := im.source.DownloadFile(ctx, f.ID, &buf); err != nil {
			return results, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}
		res, err := im.Import(ctx, kind, f.Name, &buf)
		if err != nil {
			return results, fmt.Errorf("failed to import %s: %w", f.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (im *Importer) importSales(ctx context.Context, rows [][]string, cols map[string]int, catalog map[int64]bool, res *ImportResult) error {
	type productDay struct {
		productID int64
		day       string
	}
	totals := make(map[productDay]*domain.DailySale)

	for i, row := range rows {
		line := i + 2
		productID, err := parseProductID(value(row, cols, "product_id"))
		if err != nil {
			res.skip(line, "%v", err)
			continue
		}
		if !catalog[productID] {
			res.skip(line, "unknown product %d", productID)
			continue
		}
		date, err := parseDate(value(row, cols, "date"))
		if err != nil {
			res.skip(line, "%v", err)
			continue
		}
		quantity, err := strconv.ParseFloat(value(row, cols, "quantity"), 64)
		if err != nil || quantity < 0 {
			res.skip(line, "invalid quantity %q", value(row, cols, "quantity"))
			continue
		}

		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		k := productDay{productID: productID, day: day.Format("2006-01-02")}
		if sale, ok := totals[k]; ok {
			sale.Quantity += quantity
		} else {
			totals[k] = &domain.DailySale{ProductID: productID, Date: day, Quantity: quantity}
		}
		res.Imported++
	}

	sales := make([]domain.DailySale, 0, len(totals))
	touched := make(map[int64]bool)
	for _, sale := range totals {
		sales = append(sales, *sale)
		touched[sale.ProductID] = true
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].ProductID != sales[j].ProductID {
			return sales[i].ProductID < sales[j].ProductID
		}
		return sales[i].Date.Before(sales[j].Date)
	})
	if len(sales) == 0 {
		return nil
	}
	if err := im.sales.UpsertDailySales(ctx, sales); err != nil {
		return fmt.Errorf("failed to upsert sales: %w", err)
	}

	if im.cache == nil {
		return nil
	}
	for id := range touched {
		if err := im.cache.InvalidateProduct(ctx, id); err != nil {
			log.Warn().Err(err).Int64("product_id", id).Msg("Forecast cache invalidation failed")
		}
	}
	return nil
}

func (im *Importer) importStock(ctx context.Context, rows [][]string, cols map[string]int, catalog map[int64]bool, res *ImportResult) error {
	levels := make([]domain.StockLevel, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		productID, err := parseProductID(value(row, cols, "product_id"))
		if err != nil {
			res.skip(line, "%v", err)
			continue
		}
		if !catalog[productID] {
			res.skip(line, "unknown product %d", productID)
			continue
		}
		recordedAt, err := parseDate(value(row, cols, "recorded_at"))
		if err != nil {
			res.skip(line, "%v", err)
			continue
		}
		// spreadsheets often store integers as "12.0"
		qty, err := strconv.ParseFloat(value(row, cols, "quantity_on_hand"), 64)
		if err != nil || qty < 0 {
			res.skip(line, "invalid quantity_on_hand %q", value(row, cols, "quantity_on_hand"))
			continue
		}

		levels = append(levels, domain.StockLevel{ProductID: productID, QuantityOnHand: int(qty), RecordedAt: recordedAt})
		res.Imported++
	}
	if len(levels) == 0 {
		return nil
	}
	if err := im.products.RecordStock(ctx, levels); err != nil {
		return fmt.Errorf("failed to record stock: %w", err)
	}
	return nil
}

func (im *Importer) catalog(ctx context.Context) (map[int64]bool, error) {
	products, err := im.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	set := make(map[int64]bool, len(products))
	for _, p := range products {
		set[p.ID] = true
	}
	return set, nil
}

func readRecords(name string, r io.Reader) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return xlsxRecords(r)
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", name, err)
	}
	return records, nil
}

func value(row []string, cols map[string]int, name string) string {
	if idx, ok := cols[name]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product_id %q", s)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
