package importapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rowOutcome int

const (
	outcomeFailed rowOutcome = iota
	outcomeInserted
	outcomeUpdated
)

// rowRunner carries the run-local state of one import: counters, the capped error list and warnings.
// Rows are processed one at a time in file order.
type rowRunner struct {
	svc      *ImportService
	log      *zap.Logger
	tenantID uuid.UUID
	actorID  *uuid.UUID
	profile  *bulk.ImportProfile
	mapping  bulk.CanonicalMapping

	total      int
	successful int
	failed     int
	skipped    int
	errors     *csvimport.RowErrors
	warnings   []RowWarning
}

func newRowRunner(
	svc *ImportService,
	log *zap.Logger,
	tenantID uuid.UUID,
	actorID *uuid.UUID,
	profile *bulk.ImportProfile,
	mapping bulk.CanonicalMapping,
) *rowRunner {
	return &rowRunner{
		svc:      svc,
		log:      log,
		tenantID: tenantID,
		actorID:  actorID,
		profile:  profile,
		mapping:  mapping,
		errors:   csvimport.NewRowErrors(svc.cfg.MaxErrors),
	}
}

// process handles one row. Row failures, including panics, are counted against
// the row and processing moves on. The only error returned is an unreachable
// store, which ends the run.
func (r *rowRunner) process(ctx context.Context, row *csvimport.Row, rowNum int) error {
	outcome, code, msg, err := r.safeProcess(ctx, row, rowNum)
	if err != nil {
		return err
	}

	r.total++
	switch outcome {
	case outcomeInserted:
		r.successful++
	case outcomeUpdated:
		r.skipped++
	default:
		r.failed++
		r.errors.Add(rowNum, code, msg)
		r.log.Debug("import row failed", zap.Int("row", rowNum), zap.String("reason", msg))
	}
	return nil
}

func (r *rowRunner) safeProcess(ctx context.Context, row *csvimport.Row, rowNum int) (outcome rowOutcome, code, msg string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = outcomeFailed
			code = csvimport.ErrCodeImportRowProcessing
			msg = fmt.Sprintf("unexpected error: %v", rec)
		}
	}()

	draft := r.svc.transformer.Transform(ctx, row, r.mapping, r.profile.Transformations, r.profile.ValidationRules.DefaultCurrency)
	for _, w := range draft.Warnings {
		r.warn(rowNum, w)
	}

	verdict := csvimport.ValidateDraft(draft, r.profile.ValidationRules)
	if !verdict.IsValid {
		return outcomeFailed, csvimport.ErrCodeImportValidation, verdict.Message(), nil
	}

	outcome, err = r.reconcile(ctx, draft)
	switch {
	case err == nil:
		return outcome, "", "", nil
	case storeUnavailable(err):
		return outcomeFailed, "", "", err
	default:
		return outcomeFailed, csvimport.ErrCodeImportRowProcessing, err.Error(), nil
	}
}

// reconcile inserts the draft, or overwrites the product that already carries its SKU.
// Lookup and write for one SKU happen under the SKU lock so a SKU repeated within
// a file, or across concurrent runs, never produces two products.
func (r *rowRunner) reconcile(ctx context.Context, draft csvimport.DraftRecord) (rowOutcome, error) {
	details := draft.Details()
	if draft.SKU == "" || r.profile.ValidationRules.AllowDuplicateSKU {
		return r.insert(ctx, details)
	}

	release, err := r.svc.locker.Acquire(ctx, SKULockKey(r.tenantID, draft.SKU))
	if err != nil {
		return outcomeFailed, fmt.Errorf("lock sku %s: %w", draft.SKU, err)
	}
	defer release()

	existing, err := r.svc.products.FindBySKU(ctx, r.tenantID, draft.SKU)
	switch {
	case err == nil:
		if err := existing.Apply(details); err != nil {
			return outcomeFailed, err
		}
		if err := r.svc.products.Save(ctx, existing); err != nil {
			return outcomeFailed, fmt.Errorf("update product: %w", err)
		}
		return outcomeUpdated, nil
	case errors.Is(err, shared.ErrNotFound):
		return r.insert(ctx, details)
	default:
		return outcomeFailed, fmt.Errorf("find product by sku: %w", err)
	}
}

func (r *rowRunner) insert(ctx context.Context, details catalog.ProductDetails) (rowOutcome, error) {
	product, err := catalog.NewProduct(r.tenantID, details)
	if err != nil {
		return outcomeFailed, err
	}
	if r.actorID != nil && *r.actorID != uuid.Nil {
		actor := *r.actorID
		product.CreatedBy = &actor
	}
	if err := r.svc.products.Save(ctx, product); err != nil {
		return outcomeFailed, fmt.Errorf("insert product: %w", err)
	}
	return outcomeInserted, nil
}

func (r *rowRunner) warn(rowNum int, msg string) {
	if len(r.warnings) >= DefaultRunWarningLimit {
		return
	}
	r.warnings = append(r.warnings, RowWarning{Row: rowNum, Message: msg})
}

func (r *rowRunner) stats() bulk.ImportStats {
	if r.errors.Truncated() {
		r.log.Info("row errors truncated",
			zap.Int("kept", len(r.errors.Kept())),
			zap.Int("total", r.errors.Total()),
			zap.Any("by_code", r.errors.ByCode()),
		)
	}
	details := make([]bulk.ImportErrorDetail, 0, len(r.errors.Kept()))
	for _, e := range r.errors.Kept() {
		details = append(details, bulk.ImportErrorDetail{Row: e.Row, Message: e.Message})
	}
	return bulk.ImportStats{
		Total:      r.total,
		Successful: r.successful,
		Failed:     r.failed,
		Skipped:    r.skipped,
		Errors:     details,
	}
}
