package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/export"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"go.uber.org/zap"
)

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================
//
//   GET /api/rapports/dotations?exercice=2025[&format=csv]
//   GET /api/rapports/inventaire?date=2025-12-31[&format=csv]
//   GET /api/rapports/cerfa?exercice=2025[&format=csv]
//
// exercice defaults to the fiscal year containing today, date to today.
// Assets that cannot be computed are left out and listed under "rejetees"
// (JSON) or in the X-Rejected-Assets header (CSV).

// RejectedHeader lists rejected asset codes on CSV responses.
const RejectedHeader = "X-Rejected-Assets"

type projection func(ctx context.Context, assets []asset.Record) ([]report.Row, error)

// DotationsReport returns the charges of one fiscal year.
func (h *Handler) DotationsReport(w http.ResponseWriter, r *http.Request) {
	fy, err := h.fiscalYearParam(r)
	if err != nil {
		h.fail(w, r, "Invalid fiscal year", err)
		return
	}
	h.serveReport(w, r, report.KindDotations, func(ctx context.Context, assets []asset.Record) ([]report.Row, error) {
		return h.Projector.Dotations(ctx, assets, fy)
	})
}

// InventaireReport returns the register as of a date.
func (h *Handler) InventaireReport(w http.ResponseWriter, r *http.Request) {
	asOf := h.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := fiscal.ParseDate(v)
		if err != nil {
			h.fail(w, r, "Invalid date", fmt.Errorf("%w: %v", errMalformed, err))
			return
		}
		asOf = d
	}
	h.serveReport(w, r, report.KindInventaire, func(ctx context.Context, assets []asset.Record) ([]report.Row, error) {
		return h.Projector.Inventaire(ctx, assets, asOf)
	})
}

// CerfaReport returns the per-family movements of one fiscal year.
func (h *Handler) CerfaReport(w http.ResponseWriter, r *http.Request) {
	fy, err := h.fiscalYearParam(r)
	if err != nil {
		h.fail(w, r, "Invalid fiscal year", err)
		return
	}
	h.serveReport(w, r, report.KindCerfa, func(ctx context.Context, assets []asset.Record) ([]report.Row, error) {
		return h.Projector.Cerfa(ctx, assets, fy)
	})
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, kind report.Kind, project projection) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		h.fail(w, r, "Invalid format", fmt.Errorf("%w: format %q (use json or csv)", errMalformed, format))
		return
	}

	ctx := r.Context()
	assets, err := h.Store.ListAssets(ctx)
	if err != nil {
		h.fail(w, r, "Failed to list assets", err)
		return
	}

	rows, err := project(ctx, assets)
	var rejected *report.RejectionError
	if err != nil && !errors.As(err, &rejected) {
		h.fail(w, r, "Failed to compute report", err)
		return
	}

	var codes []string
	if rejected != nil {
		codes = rejected.Codes()
		h.Metrics.AssetsRejected.WithLabelValues(string(kind)).Add(float64(len(codes)))
		h.Logger.Warn("report computed with rejections",
			zap.String("request_id", requestID(ctx)),
			zap.String("kind", string(kind)),
			zap.Strings("assets", codes),
		)
	}
	h.Metrics.ReportsRendered.WithLabelValues(string(kind), format).Inc()

	if format == "json" {
		writeJSON(w, http.StatusOK, ReportResponse{Kind: kind, Rows: rows, Rejected: codes})
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(kind)))
	if len(codes) > 0 {
		w.Header().Set(RejectedHeader, strings.Join(codes, ","))
	}
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, rows); err != nil {
		// Headers are gone; all that is left is to log.
		h.Logger.Error("failed to write CSV", zap.String("request_id", requestID(ctx)), zap.Error(err))
	}
}

func (h *Handler) fiscalYearParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("exercice")
	if v == "" {
		return h.calendar().YearOf(h.Today()), nil
	}
	fy, err := strconv.Atoi(v)
	if err != nil || fy < 1900 || fy > 2200 {
		return 0, fmt.Errorf("%w: exercice %q", errMalformed, v)
	}
	return fy, nil
}

func (h *Handler) calendar() fiscal.Calendar {
	if h.Builder.Calendar.EndMonth == 0 {
		return fiscal.CalendarYear
	}
	return h.Builder.Calendar
}
