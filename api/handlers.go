/*
handlers.go - HTTP API handlers for the fixed-asset register

PURPOSE:
  Exposes the asset register and the depreciation engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  store, the factory and the depreciation builder.

ENDPOINTS:
  Assets:
    GET    /api/immobilisations                     List assets
    POST   /api/immobilisations                     Create asset
    GET    /api/immobilisations/{code}              Get asset
    PUT    /api/immobilisations/{code}              Replace asset
    DELETE /api/immobilisations/{code}              Delete asset
    GET    /api/immobilisations/{code}/amortissement Depreciation schedule

  Master data (same five verbs each):
    /api/familles, /api/localisations, /api/comptes

  Reports (see reports.go):
    GET    /api/rapports/{dotations|inventaire|cerfa}

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: asset and master-data persistence
  - Builder: schedule computation for single assets
  - Projector: batch computation for reports
  - Logger, Metrics

REQUEST FLOW:
  1. Decode the JSON document
  2. factory.Check: document shape (400)
  3. Resolve against the family, asset.Validate (422)
  4. Persist
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, validator failures, bad query parameters
  - 404: Unknown code
  - 409: Code already exists, or master data still referenced
  - 422: Asset data rejected by the engine
  - 500: Storage failures and ComputationErrors (logged)

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report endpoints
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	errMalformed = errors.New("malformed request")
	errExists    = errors.New("already exists")
	errCodeMatch = errors.New("body code does not match URL")
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     store.Store
	Builder   depreciation.Builder
	Projector *report.Projector
	Logger    *zap.Logger
	Metrics   *Metrics
	Registry  *prometheus.Registry

	// Today supplies the default report date.
	Today func() fiscal.Date
}

// NewHandler creates a handler with its own metrics registry. A nil
// logger disables logging.
func NewHandler(s store.Store, builder depreciation.Builder, workers int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	return &Handler{
		Store:     s,
		Builder:   builder,
		Projector: report.New(builder, workers, logger.Named("report")),
		Logger:    logger,
		Metrics:   NewMetricsWithRegistry(registry),
		Registry:  registry,
		Today:     fiscal.Today,
	}
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns all assets ordered by code.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAssets(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list assets", err)
		return
	}

	docs := make([]factory.AssetDoc, len(records))
	for i, rec := range records {
		docs[i] = factory.DocFromRecord(rec)
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetAsset returns a single asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetAsset(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Asset not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.DocFromRecord(rec))
}

// CreateAsset registers a new asset. Omitted method, life and coefficient
// are taken from the asset's family.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var doc factory.AssetDoc
	if err := decode(r, &doc); err != nil {
		h.fail(w, r, "Invalid asset", err)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.GetAsset(ctx, doc.Code); err == nil {
		h.fail(w, r, "Asset already exists", fmt.Errorf("asset %q: %w", doc.Code, errExists))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, "Failed to create asset", err)
		return
	}

	rec, err := h.resolveAsset(r, doc)
	if err != nil {
		h.fail(w, r, "Invalid asset", err)
		return
	}
	if err := h.Store.SaveAsset(ctx, rec); err != nil {
		h.fail(w, r, "Failed to save asset", err)
		return
	}

	h.Logger.Info("asset created", zap.String("code", rec.Code), zap.String("method", rec.Method.String()))
	writeJSON(w, http.StatusCreated, factory.DocFromRecord(rec))
}

// UpdateAsset replaces an existing asset. The body code, when given, must
// match the URL.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var doc factory.AssetDoc
	if err := decodeFor(r, code, &doc.Code, &doc); err != nil {
		h.fail(w, r, "Invalid asset", err)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.GetAsset(ctx, code); err != nil {
		h.fail(w, r, "Asset not found", err)
		return
	}

	rec, err := h.resolveAsset(r, doc)
	if err != nil {
		h.fail(w, r, "Invalid asset", err)
		return
	}
	if err := h.Store.SaveAsset(ctx, rec); err != nil {
		h.fail(w, r, "Failed to save asset", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.DocFromRecord(rec))
}

// DeleteAsset removes an asset.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAsset(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, r, "Failed to delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule returns the depreciation schedule of one asset.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetAsset(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Asset not found", err)
		return
	}

	schedule, err := h.Builder.Build(rec)
	h.Metrics.observeBuild(err)
	if err != nil {
		h.fail(w, r, "Failed to compute schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(schedule))
}

// resolveAsset checks doc and turns it into a validated record. Unknown
// family or location codes are data errors.
func (h *Handler) resolveAsset(r *http.Request, doc factory.AssetDoc) (asset.Record, error) {
	if err := factory.Check(doc); err != nil {
		return asset.Record{}, err
	}

	ctx := r.Context()
	var family *asset.Family
	if doc.FamilyCode != "" {
		f, err := h.Store.GetFamily(ctx, doc.FamilyCode)
		if errors.Is(err, store.ErrNotFound) {
			return asset.Record{}, &asset.InvalidAssetError{Code: doc.Code, Field: "famille", Reason: fmt.Sprintf("unknown family %q", doc.FamilyCode)}
		}
		if err != nil {
			return asset.Record{}, err
		}
		family = &f
	}
	if doc.LocationCode != "" {
		_, err := h.Store.GetLocation(ctx, doc.LocationCode)
		if errors.Is(err, store.ErrNotFound) {
			return asset.Record{}, &asset.InvalidAssetError{Code: doc.Code, Field: "localisation", Reason: fmt.Sprintf("unknown location %q", doc.LocationCode)}
		}
		if err != nil {
			return asset.Record{}, err
		}
	}

	return factory.Resolve(doc, family)
}

// =============================================================================
// FAMILY HANDLERS
// =============================================================================

// ListFamilies returns all families.
func (h *Handler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.Store.ListFamilies(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list families", err)
		return
	}
	docs := make([]factory.FamilyDoc, len(families))
	for i, f := range families {
		docs[i] = factory.FamilyDocFrom(f)
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetFamily returns a single family.
func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	f, err := h.Store.GetFamily(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Family not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FamilyDocFrom(f))
}

// CreateFamily registers a new family.
func (h *Handler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var doc factory.FamilyDoc
	if err := decode(r, &doc); err != nil {
		h.fail(w, r, "Invalid family", err)
		return
	}
	if _, err := h.Store.GetFamily(r.Context(), doc.Code); err == nil {
		h.fail(w, r, "Family already exists", fmt.Errorf("family %q: %w", doc.Code, errExists))
		return
	}
	h.saveFamily(w, r, doc, http.StatusCreated)
}

// UpdateFamily replaces an existing family. Assets keep the plan they were
// resolved with.
func (h *Handler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var doc factory.FamilyDoc
	if err := decodeFor(r, code, &doc.Code, &doc); err != nil {
		h.fail(w, r, "Invalid family", err)
		return
	}
	if _, err := h.Store.GetFamily(r.Context(), code); err != nil {
		h.fail(w, r, "Family not found", err)
		return
	}
	h.saveFamily(w, r, doc, http.StatusOK)
}

func (h *Handler) saveFamily(w http.ResponseWriter, r *http.Request, doc factory.FamilyDoc, status int) {
	if err := factory.Check(doc); err != nil {
		h.fail(w, r, "Invalid family", err)
		return
	}
	f, err := factory.ResolveFamily(doc)
	if err != nil {
		h.fail(w, r, "Invalid family", err)
		return
	}
	if err := h.Store.SaveFamily(r.Context(), f); err != nil {
		h.fail(w, r, "Failed to save family", err)
		return
	}
	writeJSON(w, status, factory.FamilyDocFrom(f))
}

// DeleteFamily removes a family no asset refers to.
func (h *Handler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteFamily(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, r, "Failed to delete family", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LOCATION HANDLERS
// =============================================================================

// ListLocations returns all locations.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Store.ListLocations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	docs := make([]factory.LocationDoc, len(locations))
	for i, l := range locations {
		docs[i] = toLocationDoc(l)
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetLocation returns a single location.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.GetLocation(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Location not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationDoc(l))
}

// CreateLocation registers a new location.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var doc factory.LocationDoc
	if err := decode(r, &doc); err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	if _, err := h.Store.GetLocation(r.Context(), doc.Code); err == nil {
		h.fail(w, r, "Location already exists", fmt.Errorf("location %q: %w", doc.Code, errExists))
		return
	}
	h.saveLocation(w, r, doc, http.StatusCreated)
}

// UpdateLocation replaces an existing location.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var doc factory.LocationDoc
	if err := decodeFor(r, code, &doc.Code, &doc); err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	if _, err := h.Store.GetLocation(r.Context(), code); err != nil {
		h.fail(w, r, "Location not found", err)
		return
	}
	h.saveLocation(w, r, doc, http.StatusOK)
}

func (h *Handler) saveLocation(w http.ResponseWriter, r *http.Request, doc factory.LocationDoc, status int) {
	if err := factory.Check(doc); err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	l := asset.Location{Code: strings.TrimSpace(doc.Code), Label: strings.TrimSpace(doc.Label)}
	if err := h.Store.SaveLocation(r.Context(), l); err != nil {
		h.fail(w, r, "Failed to save location", err)
		return
	}
	writeJSON(w, status, toLocationDoc(l))
}

// DeleteLocation removes a location no asset refers to.
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteLocation(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, r, "Failed to delete location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all ledger accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list accounts", err)
		return
	}
	docs := make([]factory.AccountDoc, len(accounts))
	for i, a := range accounts {
		docs[i] = toAccountDoc(a)
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.GetAccount(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Account not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDoc(a))
}

// CreateAccount registers a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var doc factory.AccountDoc
	if err := decode(r, &doc); err != nil {
		h.fail(w, r, "Invalid account", err)
		return
	}
	if _, err := h.Store.GetAccount(r.Context(), doc.Code); err == nil {
		h.fail(w, r, "Account already exists", fmt.Errorf("account %q: %w", doc.Code, errExists))
		return
	}
	h.saveAccount(w, r, doc, http.StatusCreated)
}

// UpdateAccount replaces an existing account.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var doc factory.AccountDoc
	if err := decodeFor(r, code, &doc.Code, &doc); err != nil {
		h.fail(w, r, "Invalid account", err)
		return
	}
	if _, err := h.Store.GetAccount(r.Context(), code); err != nil {
		h.fail(w, r, "Account not found", err)
		return
	}
	h.saveAccount(w, r, doc, http.StatusOK)
}

func (h *Handler) saveAccount(w http.ResponseWriter, r *http.Request, doc factory.AccountDoc, status int) {
	if err := factory.Check(doc); err != nil {
		h.fail(w, r, "Invalid account", err)
		return
	}
	a := asset.Account{
		Code:                doc.Code,
		Label:               strings.TrimSpace(doc.Label),
		DepreciationAccount: doc.DepreciationAccount,
		ExpenseAccount:      doc.ExpenseAccount,
	}
	if err := h.Store.SaveAccount(r.Context(), a); err != nil {
		h.fail(w, r, "Failed to save account", err)
		return
	}
	writeJSON(w, status, toAccountDoc(a))
}

// DeleteAccount removes an account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAccount(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, r, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.fail(w, r, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// decodeFor decodes a PUT body and defaults its code to the URL code.
func decodeFor(r *http.Request, code string, bodyCode *string, dst any) error {
	if err := decode(r, dst); err != nil {
		return err
	}
	if *bodyCode == "" {
		*bodyCode = code
	}
	if *bodyCode != code {
		return fmt.Errorf("%w: %q != %q", errCodeMatch, *bodyCode, code)
	}
	return nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMalformed), errors.Is(err, errCodeMatch), errors.Is(err, factory.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errExists), errors.Is(err, store.ErrInUse):
		return http.StatusConflict
	case asset.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Server errors are logged with
// the request id.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message,
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	var docErr *factory.DocumentError
	if errors.As(err, &docErr) {
		resp.Fields = docErr.Fields
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
