package importapp

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default limits
const (
	DefaultMaxFileSize     int64 = 10 << 20
	DefaultPreviewLimit          = 10
	MaxPreviewLimit              = 100
	DefaultRunWarningLimit       = bulk.MaxErrorDetails
)

// FileSource fetches import files from object storage
type FileSource interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Config holds the limits an ImportService enforces
type Config struct {
	MaxFileSize  int64
	PreviewLimit int
	MaxErrors    int
}

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.PreviewLimit <= 0 {
		c.PreviewLimit = DefaultPreviewLimit
	}
	if c.PreviewLimit > MaxPreviewLimit {
		c.PreviewLimit = MaxPreviewLimit
	}
	if c.MaxErrors <= 0 || c.MaxErrors > bulk.MaxErrorDetails {
		c.MaxErrors = bulk.MaxErrorDetails
	}
	return c
}

// ImportService runs and previews catalog imports
type ImportService struct {
	profiles    bulk.ImportProfileRepository
	histories   bulk.ImportHistoryRepository
	products    catalog.ProductRepository
	eventBus    shared.EventPublisher
	locker      SKULocker
	files       FileSource
	mapper      *csvimport.ColumnMapper
	transformer *csvimport.Transformer
	cfg         Config
	logger      *zap.Logger
}

// ServiceOption configures an ImportService
type ServiceOption func(*ImportService)

// WithEventPublisher publishes ImportCompleted/ImportFailed events
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(s *ImportService) { s.eventBus = p }
}

// WithSKULocker sets the per-SKU lock used during reconciliation
func WithSKULocker(l SKULocker) ServiceOption {
	return func(s *ImportService) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithFileSource enables RunFromStorage
func WithFileSource(f FileSource) ServiceOption {
	return func(s *ImportService) { s.files = f }
}

// WithColumnMapper replaces the built-in synonym mapper
func WithColumnMapper(m *csvimport.ColumnMapper) ServiceOption {
	return func(s *ImportService) {
		if m != nil {
			s.mapper = m
		}
	}
}

// WithTransformer replaces the default transformer
func WithTransformer(t *csvimport.Transformer) ServiceOption {
	return func(s *ImportService) {
		if t != nil {
			s.transformer = t
		}
	}
}

// WithConfig sets the service limits
func WithConfig(cfg Config) ServiceOption {
	return func(s *ImportService) { s.cfg = cfg.withDefaults() }
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *ImportService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewImportService creates a new ImportService
func NewImportService(
	profiles bulk.ImportProfileRepository,
	histories bulk.ImportHistoryRepository,
	products catalog.ProductRepository,
	opts ...ServiceOption,
) *ImportService {
	s := &ImportService{
		profiles:    profiles,
		histories:   histories,
		products:    products,
		locker:      noopLocker{},
		mapper:      csvimport.DefaultColumnMapper(),
		transformer: csvimport.NewTransformer(),
		cfg:         Config{}.withDefaults(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCommand starts an import run
type RunCommand struct {
	TenantID  uuid.UUID
	ActorID   *uuid.UUID
	ProfileID uuid.UUID
	FileName  string
	Content   []byte
}

// StorageRunCommand starts an import run from an object storage key
type StorageRunCommand struct {
	TenantID  uuid.UUID
	ActorID   *uuid.UUID
	ProfileID uuid.UUID
	Key       string
}

// RunStats are the counters reported to callers.
// Updated mirrors Skipped: both count rows that overwrote an existing product.
type RunStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Updated    int `json:"updated"`
}

// RowWarning is a non-fatal remark about a row that was still imported or rejected
type RowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// RunResult is the outcome of a completed run
type RunResult struct {
	HistoryID uuid.UUID                `json:"history_id"`
	Status    bulk.ImportStatus        `json:"status"`
	Stats     RunStats                 `json:"stats"`
	Errors    []bulk.ImportErrorDetail `json:"errors"`
	Warnings  []RowWarning             `json:"warnings"`
}

// Run imports a file with a profile. Row failures are reported in the result;
// any returned error after validation of the command is a *FatalImportError.
func (s *ImportService) Run(ctx context.Context, cmd RunCommand) (*RunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "run",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, cmd.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrProfileID, cmd.ProfileID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFileName, cmd.FileName),
	)
	defer span.End()

	if cmd.ProfileID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Profile ID is required")
	}

	history, err := bulk.NewImportHistory(cmd.TenantID, &cmd.ProfileID, cmd.ActorID, cmd.FileName)
	if err != nil {
		return nil, err
	}
	log := s.log(ctx).With(
		zap.String("history_id", history.ID.String()),
		zap.String("profile_id", cmd.ProfileID.String()),
		zap.String("file_name", history.FileName),
	)

	if err := s.histories.Save(ctx, history); err != nil {
		fatal := &FatalImportError{Stage: StageHistory, Err: err}
		telemetry.RecordError(span, fatal)
		log.Error("failed to create import history", zap.Error(err))
		return nil, fatal
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrHistoryID, history.ID.String())
	log.Info("import started", zap.Int("size_bytes", len(cmd.Content)))

	profile, err := s.loadRunProfile(ctx, cmd.TenantID, cmd.ProfileID)
	if err != nil {
		return nil, s.fail(ctx, log, history, StageProfile, err)
	}

	table, err := s.decode(ctx, profile, history.FileName, cmd.Content, 0)
	if err != nil {
		return nil, s.fail(ctx, log, history, StageDecode, err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, table.RowCount)

	mapping := s.mapper.Resolve(table.Headers, profile.ColumnMapping)
	run := newRowRunner(s, log, cmd.TenantID, cmd.ActorID, profile, mapping)
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, log, history, StageRows, err)
		}
		if err := run.process(ctx, row, rowNumber(i, profile.HasHeader)); err != nil {
			return nil, s.fail(ctx, log, history, StageStore, err)
		}
	}

	stats := run.stats()
	if err := history.Complete(stats); err != nil {
		return nil, s.fail(ctx, log, history, StageRows, err)
	}
	if err := s.histories.Save(ctx, history); err != nil {
		fatal := &FatalImportError{HistoryID: history.ID, Stage: StageStore, Err: err}
		telemetry.RecordError(span, fatal)
		log.Error("failed to persist import result", zap.Error(err))
		return nil, fatal
	}
	s.publishEvents(ctx, log, history)

	log.Info("import completed",
		zap.Int("total", stats.Total),
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", history.Duration()),
	)
	telemetry.SetOK(span)
	return newRunResult(history, run.warnings), nil
}

// RunFromStorage fetches the file by key and runs it. The history file name is the key's base name.
func (s *ImportService) RunFromStorage(ctx context.Context, cmd StorageRunCommand) (*RunResult, error) {
	if s.files == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Object storage is not configured")
	}
	key := strings.TrimSpace(cmd.Key)
	if key == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Storage key is required")
	}

	content, err := s.files.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return s.Run(ctx, RunCommand{
		TenantID:  cmd.TenantID,
		ActorID:   cmd.ActorID,
		ProfileID: cmd.ProfileID,
		FileName:  path.Base(key),
		Content:   content,
	})
}

// PreviewCommand asks for a dry run over the first rows of a file.
// Mapping, when non-empty, takes precedence over the profile's mapping and over inference.
type PreviewCommand struct {
	TenantID  uuid.UUID
	FileName  string
	Content   []byte
	ProfileID *uuid.UUID
	Mapping   bulk.CanonicalMapping
	Limit     int
}

// PreviewRow is one previewed row with its transformed draft and baseline verdict
type PreviewRow struct {
	Row    int                   `json:"row"`
	Values map[string]string     `json:"values"`
	Draft  csvimport.DraftRecord `json:"draft"`
	Valid  bool                  `json:"valid"`
	Errors []string              `json:"errors"`
}

// PreviewStats counts rows; valid and invalid cover only the previewed rows
type PreviewStats struct {
	TotalRows   int `json:"total_rows"`
	ValidRows   int `json:"valid_rows"`
	InvalidRows int `json:"invalid_rows"`
}

// PreviewResult is what an operator reviews before a run
type PreviewResult struct {
	Headers         []string                    `json:"headers"`
	Rows            []PreviewRow                `json:"rows"`
	Mapping         bulk.CanonicalMapping       `json:"mapping"`
	MappingInferred bool                        `json:"mapping_inferred"`
	Conflicts       []csvimport.MappingConflict `json:"conflicts"`
	UnmappedHeaders []string                    `json:"unmapped_headers"`
	MissingColumns  []string                    `json:"missing_columns"`
	Stats           PreviewStats                `json:"stats"`
	Delimiter       string                      `json:"delimiter,omitempty"`
	Format          csvimport.Format            `json:"format"`
}

// Preview decodes the file and validates the first rows against the baseline rules.
// It never writes to the catalog or to history.
func (s *ImportService) Preview(ctx context.Context, cmd PreviewCommand) (*PreviewResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "preview",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, cmd.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFileName, cmd.FileName),
	)
	defer span.End()

	var profile *bulk.ImportProfile
	if cmd.ProfileID != nil && *cmd.ProfileID != uuid.Nil {
		p, err := s.profiles.FindByID(ctx, cmd.TenantID, *cmd.ProfileID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		profile = p
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = s.cfg.PreviewLimit
	}
	if limit > MaxPreviewLimit {
		limit = MaxPreviewLimit
	}

	table, err := s.decode(ctx, profile, cmd.FileName, cmd.Content, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	explicit := cmd.Mapping
	if len(explicit) == 0 && profile != nil {
		explicit = profile.ColumnMapping
	}
	if err := explicit.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_COLUMN_MAPPING", err.Error())
	}
	mapping := s.mapper.Resolve(table.Headers, explicit)
	report := csvimport.AnalyzeMapping(mapping, table.Headers)

	var (
		transformations bulk.Transformations
		profileCurrency string
		hasHeader       = true
	)
	if profile != nil {
		transformations = profile.Transformations
		profileCurrency = profile.ValidationRules.DefaultCurrency
		hasHeader = profile.HasHeader
	}

	result := &PreviewResult{
		Headers:         table.Headers,
		Rows:            make([]PreviewRow, 0, len(table.Preview)),
		Mapping:         mapping,
		MappingInferred: len(explicit) == 0,
		Conflicts:       report.Conflicts,
		UnmappedHeaders: report.UnmappedHeaders,
		MissingColumns:  report.MissingColumns,
		Stats:           PreviewStats{TotalRows: table.RowCount},
		Format:          table.Format,
	}
	if table.Delimiter != 0 {
		result.Delimiter = string(table.Delimiter)
	}

	for i, row := range table.Preview {
		draft := s.transformer.Transform(ctx, row, mapping, transformations, profileCurrency)
		verdict := csvimport.ValidateBaseline(draft)
		if verdict.IsValid {
			result.Stats.ValidRows++
		} else {
			result.Stats.InvalidRows++
		}
		result.Rows = append(result.Rows, PreviewRow{
			Row:    rowNumber(i, hasHeader),
			Values: row.Data,
			Draft:  draft,
			Valid:  verdict.IsValid,
			Errors: verdict.Errors,
		})
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, table.RowCount, "preview_rows", len(result.Rows))
	return result, nil
}

func (s *ImportService) loadRunProfile(ctx context.Context, tenantID, profileID uuid.UUID) (*bulk.ImportProfile, error) {
	profile, err := s.profiles.FindByID(ctx, tenantID, profileID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Import profile %s not found", profileID))
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !profile.IsActive {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Import profile %q is inactive", profile.Name))
	}
	return profile, nil
}

func (s *ImportService) decode(
	ctx context.Context,
	profile *bulk.ImportProfile,
	fileName string,
	content []byte,
	previewLimit int,
) (*csvimport.Table, error) {
	_, span := telemetry.StartServiceSpan(ctx, "import", "decode", telemetry.WithAttribute(telemetry.SpanAttrSizeBytes, len(content)))
	defer span.End()

	format, err := csvimport.FormatFromFileName(fileName)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	opts := []csvimport.DecodeOption{
		csvimport.WithFormat(format),
		csvimport.WithMaxSize(s.cfg.MaxFileSize),
		csvimport.WithPreviewLimit(previewLimit),
	}
	if profile != nil {
		opts = append(opts,
			csvimport.WithFieldDelimiter(profile.DelimiterRune()),
			csvimport.WithEncoding(profile.Encoding),
			csvimport.WithHeader(profile.HasHeader),
		)
	}

	table, err := csvimport.Decode(content, opts...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return table, nil
}

// fail moves the run to failed, persists it and wraps cause as a FatalImportError.
// The record is saved even when ctx is already cancelled.
func (s *ImportService) fail(ctx context.Context, log *zap.Logger, history *bulk.ImportHistory, stage FailureStage, cause error) error {
	fatal := &FatalImportError{HistoryID: history.ID, Stage: stage, Err: cause}
	span := telemetry.SpanFromContext(ctx)
	telemetry.AddEvent(span, "import.failed", "stage", string(stage))
	telemetry.RecordError(span, fatal)
	log.Error("import failed", zap.String("stage", string(stage)), zap.Error(cause))

	saveCtx := context.WithoutCancel(ctx)
	if err := history.Fail(cause.Error()); err != nil {
		log.Warn("cannot mark import as failed", zap.Error(err))
		return fatal
	}
	if err := s.histories.Save(saveCtx, history); err != nil {
		log.Error("failed to persist failed import", zap.Error(err))
		return fatal
	}
	s.publishEvents(saveCtx, log, history)
	return fatal
}

func (s *ImportService) publishEvents(ctx context.Context, log *zap.Logger, history *bulk.ImportHistory) {
	events := history.TakeDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		log.Warn("failed to publish import events", zap.Error(err))
	}
}

func (s *ImportService) log(ctx context.Context) *zap.Logger {
	return logger.WithTraceContext(ctx, logger.FromContextOr(ctx, s.logger))
}

// rowNumber is the 1-based file line of the i-th data row, assuming one header line when present
func rowNumber(i int, hasHeader bool) int {
	if hasHeader {
		return i + 2
	}
	return i + 1
}

func newRunResult(h *bulk.ImportHistory, warnings []RowWarning) *RunResult {
	errs := h.Stats.Errors
	if errs == nil {
		errs = make([]bulk.ImportErrorDetail, 0)
	}
	if warnings == nil {
		warnings = make([]RowWarning, 0)
	}
	return &RunResult{
		HistoryID: h.ID,
		Status:    h.Status,
		Stats: RunStats{
			Total:      h.Stats.Total,
			Successful: h.Stats.Successful,
			Failed:     h.Stats.Failed,
			Skipped:    h.Stats.Skipped,
			Updated:    h.Stats.Skipped,
		},
		Errors:   errs,
		Warnings: warnings,
	}
}
