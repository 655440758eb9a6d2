package repository

import (
	"context"
	"fmt"
	"strings"
)

// purgeDenylist guards against a human purging a supplier record by name.
// A heuristic safety net on top of the admin role check, not a security
// boundary.
var purgeDenylist = []string{"towing", "auto", "&"}

// PurgeResult reports what a purge actually removed.
type PurgeResult struct {
	BookingID   string   `json:"bookingId"`
	DeletedKeys []string `json:"deletedKeys"`
}

// PurgeJob deletes every job-scoped key for the given booking reference.
// Requires an explicit confirmation flag, refuses denylisted identifiers
// even when confirmed, and never touches supplier:* keys. Nothing found is
// ErrNotFound, not a silent success.
func (s *JobStore) PurgeJob(ctx context.Context, ref string, confirm bool) (*PurgeResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("booking reference is required")
	}

	lower := strings.ToLower(ref)
	for _, bad := range purgeDenylist {
		if strings.Contains(lower, bad) {
			return nil, ErrDenylisted
		}
	}
	if !confirm {
		return nil, ErrConfirmRequired
	}

	// Rego recorded on the job lets us prune the plate index too.
	job, err := s.GetJob(ctx, ref)
	if err != nil {
		return nil, err
	}

	candidates := []string{
		jobKey(ref),
		jobHistoryKey(ref),
		messagesKey(ref),
		legacyBookingKey(ref),
		legacyJobKey(ref),
	}

	deleted := make([]string, 0, len(candidates))
	for _, key := range candidates {
		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		if n > 0 {
			deleted = append(deleted, key)
		}
	}

	if len(deleted) == 0 {
		return nil, ErrNotFound
	}

	// Index pruning is best-effort; the job data itself is already gone.
	if err := s.client.LRem(ctx, jobsListKey, 0, ref).Err(); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", ref).Msg("jobs list prune failed")
	}
	if job != nil && job.Rego != "" {
		if err := s.client.LRem(ctx, regoJobsKey(job.Rego), 0, ref).Err(); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", ref).Str("rego", job.Rego).Msg("rego index prune failed")
		}
	}

	return &PurgeResult{BookingID: ref, DeletedKeys: deleted}, nil
}
