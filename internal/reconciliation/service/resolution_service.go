package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/fechamento-diario/internal/domain/audit"
	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
)

// ResolutionServiceImpl implements the ResolutionService interface
type ResolutionServiceImpl struct {
	logger         *slog.Logger
	divergenceRepo divergence.Repository
	closureRepo    closure.Repository
	auditRepo      audit.Repository
	pool           *ants.Pool
}

// NewResolutionService creates a new resolution service. The worker pool is
// shared by batch resolutions; single resolutions bypass it.
func NewResolutionService(
	logger *slog.Logger,
	divergenceRepo divergence.Repository,
	closureRepo closure.Repository,
	auditRepo audit.Repository,
	pool *ants.Pool,
) ResolutionService {
	return &ResolutionServiceImpl{
		logger:         logger,
		divergenceRepo: divergenceRepo,
		closureRepo:    closureRepo,
		auditRepo:      auditRepo,
		pool:           pool,
	}
}

// ResolveDivergence records a terminal resolution on a single divergence.
// Re-resolving an already resolved divergence overwrites the previous outcome.
func (s *ResolutionServiceImpl) ResolveDivergence(ctx context.Context, id uuid.UUID, status divergence.ResolutionStatus, justification string, actor divergence.Actor) (*divergence.Divergence, error) {
	d, err := s.divergenceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := d.Resolve(status, justification, actor); err != nil {
		return nil, err
	}

	if err := s.divergenceRepo.UpdateResolution(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("Divergence resolved",
		"divergence_id", d.ID.String(),
		"reference_code", d.ReferenceCode,
		"resolution", string(status),
		"resolved_by", actor.Name,
	)

	s.recordResolutionAudit(ctx, d, actor)

	return d, nil
}

// ResolveBatch resolves many divergences concurrently with a shared status and
// justification. Validation happens once up front; per-divergence not-found
// errors are counted rather than failing the batch.
func (s *ResolutionServiceImpl) ResolveBatch(ctx context.Context, ids []uuid.UUID, status divergence.ResolutionStatus, justification string, actor divergence.Actor) (*BatchResolutionResult, error) {
	if len(ids) == 0 {
		return nil, divergence.ErrEmptyDivergenceList
	}

	// Fail fast before touching any row: the shared inputs apply to every
	// divergence in the batch
	probe := divergence.Divergence{}
	if err := probe.Resolve(status, justification, actor); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		resolved atomic.Int64
		notFound atomic.Int64
		failed   atomic.Int64
	)

	for _, id := range ids {
		id := id
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			_, err := s.ResolveDivergence(ctx, id, status, justification, actor)
			switch {
			case err == nil:
				resolved.Add(1)
			case errors.Is(err, divergence.ErrDivergenceNotFound{}):
				notFound.Add(1)
				s.logger.Warn("Skipping unknown divergence in batch", "divergence_id", id.String())
			default:
				failed.Add(1)
				s.logger.Error("Failed to resolve divergence in batch",
					"divergence_id", id.String(), "error", err)
			}
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			s.logger.Error("Failed to submit resolution to worker pool",
				"divergence_id", id.String(), "error", err)
		}
	}

	wg.Wait()

	result := &BatchResolutionResult{
		Resolved: int(resolved.Load()),
		NotFound: int(notFound.Load()),
		Failed:   int(failed.Load()),
	}

	s.logger.Info("Batch resolution finished",
		"total", len(ids),
		"resolved", result.Resolved,
		"not_found", result.NotFound,
		"failed", result.Failed,
	)

	return result, nil
}

// recordResolutionAudit writes the resolution to the audit trail best-effort,
// keyed by the owning closure's date.
func (s *ResolutionServiceImpl) recordResolutionAudit(ctx context.Context, d *divergence.Divergence, actor divergence.Actor) {
	owner, err := s.closureRepo.GetByID(ctx, d.ClosureID)
	if err != nil {
		s.logger.Error("Failed to load closure for resolution audit",
			"closure_id", d.ClosureID.String(), "error", err)
		return
	}

	event := audit.NewEvent(closure.DateKey(owner.Date), audit.ActionDivergenceResolved,
		fmt.Sprintf("divergencia %s (%s) resolvida como %s", d.ReferenceCode, string(d.Kind), string(d.Resolution)))
	event.ActorID = actor.ID
	event.ActorName = actor.Name
	event.Metadata = map[string]interface{}{
		"divergence_id": d.ID.String(),
		"justification": d.Justification,
	}

	if err := s.auditRepo.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record resolution audit event",
			"divergence_id", d.ID.String(), "error", err)
	}
}
