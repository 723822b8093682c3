package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/mapper"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/ali123/ali123/internal/observability"
	"github.com/ali123/ali123/internal/pricing"
	"github.com/ali123/ali123/internal/sanitize"
	"github.com/ali123/ali123/internal/state"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/types"
	"go.uber.org/zap"
)

// ScheduleTrigger makes sure the recurring queue run exists.
type ScheduleTrigger interface {
	EnsureSchedule() error
}

// ImportSettings are the tenant defaults and batch bounds of the import pipeline.
type ImportSettings struct {
	DefaultStoreID    int64
	DefaultStatus     string
	DefaultVisibility string
	BatchSize         int
	MaxPerRun         int
}

func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		DefaultStoreID:    constants.DefaultStoreID,
		DefaultStatus:     string(types.ProductDraft),
		DefaultVisibility: string(types.VisibilityVisible),
		BatchSize:         constants.ClaimBatchSize,
		MaxPerRun:         constants.MaxProcessedPerRun,
	}
}

type ImportService struct {
	queue    store.ImportQueueStore
	mapper   *mapper.ProductMapper
	engine   *pricing.Engine
	settings ImportSettings
	trigger  ScheduleTrigger
	events   *message_broaker.EventPublisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewImportService(queue store.ImportQueueStore, productMapper *mapper.ProductMapper, engine *pricing.Engine, settings ImportSettings, logger *zap.Logger) *ImportService {
	defaults := DefaultImportSettings()
	if settings.DefaultStoreID < 1 {
		settings.DefaultStoreID = defaults.DefaultStoreID
	}
	if settings.DefaultStatus == "" {
		settings.DefaultStatus = defaults.DefaultStatus
	}
	if settings.DefaultVisibility == "" {
		settings.DefaultVisibility = defaults.DefaultVisibility
	}
	if settings.BatchSize < 1 {
		settings.BatchSize = defaults.BatchSize
	}
	if settings.MaxPerRun < 1 {
		settings.MaxPerRun = defaults.MaxPerRun
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		queue:    queue,
		mapper:   productMapper,
		engine:   engine,
		settings: settings,
		logger:   logger.Named("imports"),
		now:      time.Now,
	}
}

func (s *ImportService) SetScheduleTrigger(trigger ScheduleTrigger) {
	s.trigger = trigger
}

func (s *ImportService) SetEventPublisher(events *message_broaker.EventPublisher) {
	s.events = events
}

func (s *ImportService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// QueueImport validates payload, fills tenant defaults and stores it as a
// pending entry. meta.store_id in the payload wins over storeID.
func (s *ImportService) QueueImport(ctx context.Context, storeID int64, payload types.ImportPayload) (*types.QueueEntry, error) {
	payload = sanitize.Payload(payload)
	if payload.ExternalID == "" {
		return nil, custom_errors.MissingRequiredField("external_id")
	}
	if err := s.engine.Validate(payload.PriceRules); err != nil {
		return nil, err
	}

	if id, ok := payload.MetaStoreID(); ok {
		storeID = id
	}
	if storeID < 1 {
		storeID = s.settings.DefaultStoreID
	}
	if payload.Status == "" {
		payload.Status = s.settings.DefaultStatus
	}
	if payload.Visibility == "" {
		payload.Visibility = s.settings.DefaultVisibility
	}
	payload.EnsureCollections()

	now := s.now()
	payload.Meta["created_at"] = now.UTC().Format(time.RFC3339)

	meta := types.EntryMeta{StoreID: storeID}
	if t, ok := types.ParseScheduleTime(payload.ScheduledTime); ok {
		meta.ScheduledAt = t
	}
	payload.ScheduledTime = nil

	entry, err := s.queue.Add(ctx, payload, meta)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not queue import")
	}

	s.logger.Info("import queued",
		zap.Int64("entry_id", entry.ID),
		zap.Int64("store_id", entry.StoreID),
		zap.String("external_id", payload.ExternalID))

	if s.trigger != nil {
		if err := s.trigger.EnsureSchedule(); err != nil {
			s.logger.Warn("could not ensure queue schedule", zap.Error(err))
		}
	}
	return entry, nil
}

// UpdateImport applies an operator change. Payload keys replace the stored
// top-level keys; a failed entry moved back to pending loses its last error.
func (s *ImportService) UpdateImport(ctx context.Context, id int64, update types.ImportUpdate) (*types.QueueEntry, error) {
	existing, err := s.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return existing, nil
	}

	change := types.EntryUpdate{ExpectStatus: &existing.Status}

	if update.Status != nil && *update.Status != existing.Status {
		next, err := state.ParseStatus(string(*update.Status))
		if err != nil {
			return nil, custom_errors.NewDomainError(custom_errors.KindValidation, "%v", err)
		}
		if !state.IsValidOperatorTransition(existing.Status, next) {
			return nil, custom_errors.NewDomainError(custom_errors.KindValidation,
				"cannot move import %d from %s to %s", id, existing.Status, next)
		}
		change.Status = &next
		if existing.Status == state.StatusFailed && next == state.StatusPending {
			change.ClearLastError = true
		}
	}

	if update.ScheduledTime != nil {
		scheduledAt := types.NormalizeScheduleTime(update.ScheduledTime, s.now())
		change.ScheduledAt = &scheduledAt
	}

	if len(update.Payload) > 0 {
		merged, err := mergePayload(existing.Payload, update.Payload)
		if err != nil {
			return nil, err
		}
		merged = sanitize.Payload(merged)
		if merged.ExternalID == "" {
			return nil, custom_errors.MissingRequiredField("external_id")
		}
		if err := s.engine.Validate(merged.PriceRules); err != nil {
			return nil, err
		}
		merged.EnsureCollections()
		change.Payload = &merged
	}

	entry, err := s.queue.Update(ctx, id, change)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not update import")
	}
	if entry == nil {
		return nil, s.updateMissed(ctx, id, existing.Status)
	}
	return entry, nil
}

// updateMissed tells a deleted entry apart from one whose status moved on
// after it was read.
func (s *ImportService) updateMissed(ctx context.Context, id int64, expected state.JobStatus) error {
	current, err := s.GetImport(ctx, id)
	if err != nil {
		return err
	}
	return custom_errors.NewDomainError(custom_errors.KindConflict,
		"import %d moved from %s to %s while it was being updated", id, expected, current.Status)
}

// mergePayload overlays the top-level keys of patch onto current.
func mergePayload(current types.ImportPayload, patch json.RawMessage) (types.ImportPayload, error) {
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return current, custom_errors.Wrap(custom_errors.KindValidation, err, "payload must be a JSON object")
	}

	current.ID = 0
	base, err := json.Marshal(current)
	if err != nil {
		return current, custom_errors.Wrap(custom_errors.KindPersistence, err, "encode stored payload")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return current, custom_errors.Wrap(custom_errors.KindPersistence, err, "decode stored payload")
	}
	for k, v := range changes {
		if k == "id" {
			continue
		}
		fields[k] = v
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return current, custom_errors.Wrap(custom_errors.KindValidation, err, "encode merged payload")
	}
	var merged types.ImportPayload
	if err := json.Unmarshal(body, &merged); err != nil {
		return current, custom_errors.Wrap(custom_errors.KindValidation, err, "invalid payload")
	}
	return merged, nil
}

func (s *ImportService) DeleteImport(ctx context.Context, id int64) error {
	deleted, err := s.queue.Delete(ctx, id)
	if err != nil {
		return custom_errors.Wrap(custom_errors.KindPersistence, err, "could not delete import")
	}
	if !deleted {
		return custom_errors.NotFound("import", id)
	}
	return nil
}

func (s *ImportService) GetImport(ctx context.Context, id int64) (*types.QueueEntry, error) {
	entry, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not load import")
	}
	if entry == nil {
		return nil, custom_errors.NotFound("import", id)
	}
	return entry, nil
}

func (s *ImportService) ListImports(ctx context.Context, filter types.ListImportsFilter) (*types.PaginationResult[types.QueueEntry], error) {
	qf := types.QueueFilter{StoreID: filter.StoreID, Limit: filter.Limit, Offset: filter.Offset}
	for _, raw := range filter.Statuses {
		st, err := state.ParseStatus(raw)
		if err != nil {
			return nil, custom_errors.NewDomainError(custom_errors.KindValidation, "%v", err)
		}
		qf.Statuses = append(qf.Statuses, st)
	}
	switch {
	case qf.Limit < 1:
		qf.Limit = constants.DefaultListLimit
	case qf.Limit > constants.MaxListLimit:
		qf.Limit = constants.MaxListLimit
	}
	if qf.Offset < 0 {
		qf.Offset = 0
	}

	page, err := s.queue.All(ctx, qf)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not list imports")
	}
	return page, nil
}

func (s *ImportService) Stats(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error) {
	counts, err := s.queue.CountByStatus(ctx, storeID)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not count imports")
	}
	return counts, nil
}

func (s *ImportService) PreviewPricing(payload types.ImportPayload) (types.PreviewResult, error) {
	result, err := s.engine.Preview(sanitize.Payload(payload))
	if err != nil {
		var de *custom_errors.DomainError
		if errors.As(err, &de) {
			return types.PreviewResult{}, err
		}
		return types.PreviewResult{}, custom_errors.Wrap(custom_errors.KindValidation, err, "pricing preview failed")
	}
	return result, nil
}

// ProcessQueue claims due entries in batches and imports each one. A failing
// entry is marked failed and the batch goes on. It stops when a claim comes
// back empty or MaxPerRun entries were claimed. ctx is only checked between
// batches: once claimed, an entry always ends completed or failed.
func (s *ImportService) ProcessQueue(ctx context.Context) (types.ProcessStats, error) {
	var stats types.ProcessStats
	work := context.WithoutCancel(ctx)
	start := s.now()
	defer func() {
		s.metrics.RecordProcessRun(work, stats, s.now().Sub(start))
	}()

	for stats.Claimed < s.settings.MaxPerRun {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		limit := min(s.settings.BatchSize, s.settings.MaxPerRun-stats.Claimed)
		entries, claimErr := s.queue.ClaimDue(work, limit, nil)
		if len(entries) > 0 {
			stats.Rounds++
			stats.Claimed += len(entries)
		}

		for _, entry := range entries {
			if s.processEntry(work, entry) {
				stats.Completed++
			} else {
				stats.Failed++
			}
		}

		if claimErr != nil {
			return stats, custom_errors.Wrap(custom_errors.KindPersistence, claimErr, "could not claim imports")
		}
		if len(entries) == 0 {
			break
		}
	}

	if stats.Claimed > 0 {
		s.logger.Info("import queue processed",
			zap.Int("claimed", stats.Claimed),
			zap.Int("completed", stats.Completed),
			zap.Int("failed", stats.Failed))
	}
	return stats, nil
}

func (s *ImportService) processEntry(ctx context.Context, entry types.QueueEntry) bool {
	log := s.logger.With(
		zap.Int64("entry_id", entry.ID),
		zap.Int64("store_id", entry.StoreID),
		zap.Int("attempts", entry.Attempts))

	result, err := s.importProduct(ctx, entry)
	if err != nil {
		log.Warn("import failed", zap.Error(err))
		if _, markErr := s.queue.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			log.Error("could not mark import failed", zap.Error(markErr))
		}
		s.events.Publish(ctx, constants.EventImportFailed, entry.StoreID, map[string]any{
			"entry_id":    entry.ID,
			"external_id": entry.Payload.ExternalID,
			"attempts":    entry.Attempts,
			"kind":        custom_errors.KindOf(err),
			"error":       err.Error(),
		})
		return false
	}

	marked, err := s.queue.MarkCompleted(ctx, entry.ID)
	if err != nil {
		log.Error("could not mark import completed", zap.Error(err))
	} else if !marked {
		log.Warn("import was no longer processing when completed")
	}
	log.Info("import completed",
		zap.Int64("product_id", result.ProductID),
		zap.String("sync", string(result.Status)))
	s.events.Publish(ctx, constants.EventImportCompleted, entry.StoreID, map[string]any{
		"entry_id":    entry.ID,
		"external_id": result.ExternalID,
		"product_id":  result.ProductID,
		"sync":        result.Status,
	})
	return true
}

// importProduct maps the payload, prices it and upserts the product.
func (s *ImportService) importProduct(ctx context.Context, entry types.QueueEntry) (types.SyncResult, error) {
	record, err := s.mapper.Map(entry.StoreID, entry.Payload)
	if err != nil {
		return types.SyncResult{}, err
	}
	price, err := s.engine.ApplyRules(record.PriceRules, record.Price)
	if err != nil {
		return types.SyncResult{}, err
	}
	record.Price = price
	return s.mapper.SyncToStore(ctx, record)
}
