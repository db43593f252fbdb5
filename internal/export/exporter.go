// Package export writes batch results as CSV files to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/storage"
	"github.com/rs/zerolog/log"
)

var alertHeader = []string{
	"product_id", "product_name", "status", "urgency", "action", "stock", "lead_time",
	"demand_during_lead", "stock_after_lead", "financial_impact", "suggested_quantity", "error",
}

var quantityHeader = []string{
	"product_id", "product_name", "status", "current_stock", "predictions_cumulated", "net_need",
	"margin_percent", "final_quantity", "unit_price", "cost_estimate", "target_date", "error",
}

type Exporter struct {
	store storage.ObjectStorage
	now   func() time.Time
}

func New(store storage.ObjectStorage, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{store: store, now: now}
}

// ExportAlerts uploads one row per entry and returns the object key
func (e *Exporter) ExportAlerts(ctx context.Context, batch *domain.AlertBatch) (string, error) {
	rows := make([][]string, 0, len(batch.Alerts))
	for _, entry := range batch.Alerts {
		if entry.Alert == nil {
			rows = append(rows, []string{itoa64(entry.ProductID), "", entry.Status, "", "", "", "", "", "", "", "", entry.Error})
			continue
		}
		a := entry.Alert
		rows = append(rows, []string{
			itoa64(a.ProductID),
			a.ProductName,
			string(a.Tier),
			a.Urgency,
			a.Action,
			strconv.Itoa(a.Stock),
			strconv.Itoa(a.LeadTime),
			strconv.Itoa(a.DemandDuringLead),
			strconv.Itoa(a.StockAfterLead),
			itoa64(a.FinancialImpact.Amount),
			strconv.Itoa(a.SuggestedQuantity()),
			"",
		})
	}
	return e.upload(ctx, "alerts", alertHeader, rows)
}

// ExportQuantities uploads one row per suggestion and returns the object key
func (e *Exporter) ExportQuantities(ctx context.Context, batch *domain.QuantityBatch) (string, error) {
	rows := make([][]string, 0, len(batch.Entries))
	for _, entry := range batch.Entries {
		if entry.Suggestion == nil {
			rows = append(rows, []string{itoa64(entry.ProductID), "", entry.Status, "", "", "", "", "", "", "", "", entry.Error})
			continue
		}
		q := entry.Suggestion
		rows = append(rows, []string{
			itoa64(q.ProductID),
			q.ProductName,
			entry.Status,
			strconv.Itoa(q.CurrentStock),
			ftoa(q.PredictionsCumulated),
			ftoa(q.NetNeed),
			ftoa(q.Margin),
			strconv.Itoa(q.FinalQuantity),
			ftoa(q.UnitPrice),
			ftoa(q.CostEstimate),
			q.TargetDate,
			"",
		})
	}
	return e.upload(ctx, "quantities", quantityHeader, rows)
}

func (e *Exporter) upload(ctx context.Context, kind string, header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to encode %s csv: %w", kind, err)
	}

	now := e.now()
	key := fmt.Sprintf("%s/%s/%s_%s.csv", kind, now.Format("2006-01-02"), kind, now.Format("20060102T150405"))
	if err := e.store.UploadObject(ctx, key, buf.Bytes()); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("rows", len(rows)).Msg("Export uploaded")
	return key, nil
}

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
