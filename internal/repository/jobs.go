package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/util"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// JobStore persists job records as one hash per booking plus native lists
// for history and messages. History is never read-modify-written: appends
// go through RPUSH so concurrent handlers cannot lose entries.
type JobStore struct {
	client *redis.Client
	logger *zerolog.Logger
}

func NewJobStore(client *redis.Client, logger *zerolog.Logger) *JobStore {
	return &JobStore{client: client, logger: logger}
}

// CreateJob writes a new job record and registers it in the secondary
// indexes. Generates a booking ID when the caller did not supply one.
func (s *JobStore) CreateJob(ctx context.Context, job *models.JobRecord) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	if job.BookingID == "" {
		job.BookingID = util.NewBookingID()
	}
	if job.Status == "" {
		job.Status = models.StatusPending
	}
	now := time.Now().UTC().Format(time.RFC3339)
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := s.client.HSet(ctx, jobKey(job.BookingID), job).Err(); err != nil {
		return "", fmt.Errorf("failed to create job %s: %w", job.BookingID, err)
	}

	if err := s.client.LPush(ctx, jobsListKey, job.BookingID).Err(); err != nil {
		return "", fmt.Errorf("failed to index job %s: %w", job.BookingID, err)
	}

	// Best-effort secondary index; a failure here must not fail the create.
	if job.Rego != "" {
		if err := s.client.RPush(ctx, regoJobsKey(job.Rego), job.BookingID).Err(); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", job.BookingID).Str("rego", job.Rego).Msg("rego index push failed")
		}
	}

	return job.BookingID, nil
}

// GetJob returns the job or (nil, nil) when it does not exist.
func (s *JobStore) GetJob(ctx context.Context, bookingID string) (*models.JobRecord, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	// Legacy records live under booking:{id} or supplier-job:{id}. They are
	// read and purged but never written.
	for _, key := range []string{jobKey(bookingID), legacyBookingKey(bookingID), legacyJobKey(bookingID)} {
		cmd := s.client.HGetAll(ctx, key)
		res, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get job %s: %w", bookingID, err)
		}
		if len(res) == 0 {
			continue
		}

		var job models.JobRecord
		if err := cmd.Scan(&job); err != nil {
			return nil, fmt.Errorf("failed to decode job %s: %w", bookingID, err)
		}
		return &job, nil
	}
	return nil, nil
}

// UpdateJob merges the given fields into the job hash. Unspecified fields
// are untouched; last write wins per field. Callers must not pass history
// or message content here.
func (s *JobStore) UpdateJob(ctx context.Context, bookingID string, fields map[string]any) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.migrateLegacyJob(ctx, bookingID); err != nil {
		return err
	}

	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.client.HSet(ctx, jobKey(bookingID), args...).Err(); err != nil {
		return fmt.Errorf("failed to update job %s: %w", bookingID, err)
	}
	return nil
}

// migrateLegacyJob copies a legacy hash into job:{id} before its first
// write. Without this a partial update would create a sparse job:{id}
// hash that shadows the full legacy record on every later read. Same
// precedence as GetJob: booking:{id} wins over supplier-job:{id}.
func (s *JobStore) migrateLegacyJob(ctx context.Context, bookingID string) error {
	exists, err := s.client.Exists(ctx, jobKey(bookingID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check job %s: %w", bookingID, err)
	}
	if exists > 0 {
		return nil
	}

	for _, key := range []string{legacyBookingKey(bookingID), legacyJobKey(bookingID)} {
		res, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read legacy job %s: %w", bookingID, err)
		}
		if len(res) == 0 {
			continue
		}

		args := make([]any, 0, len(res)*2)
		for k, v := range res {
			args = append(args, k, v)
		}
		if err := s.client.HSet(ctx, jobKey(bookingID), args...).Err(); err != nil {
			return fmt.Errorf("failed to migrate legacy job %s: %w", bookingID, err)
		}
		s.logger.Info().Str("booking_id", bookingID).Str("from", key).Msg("legacy job migrated to current key")
		return nil
	}
	return nil
}

// AppendHistory pushes an event onto the job's append-only history list.
func (s *JobStore) AppendHistory(ctx context.Context, bookingID string, event models.HistoryEvent) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode history event: %w", err)
	}
	if err := s.client.RPush(ctx, jobHistoryKey(bookingID), data).Err(); err != nil {
		return fmt.Errorf("failed to append history for %s: %w", bookingID, err)
	}
	return nil
}

// GetHistory returns history events oldest-first. Unparseable entries are
// skipped rather than failing the whole read.
func (s *JobStore) GetHistory(ctx context.Context, bookingID string) ([]models.HistoryEvent, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	raw, err := s.client.LRange(ctx, jobHistoryKey(bookingID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", bookingID, err)
	}

	events := make([]models.HistoryEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.HistoryEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("skipping malformed history entry")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// AppendMessage pushes a chat message to the head of the per-job list.
func (s *JobStore) AppendMessage(ctx context.Context, jobRef string, msg models.Message) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := s.client.LPush(ctx, messagesKey(jobRef), data).Err(); err != nil {
		return fmt.Errorf("failed to append message for %s: %w", jobRef, err)
	}
	return nil
}

// GetMessages returns messages oldest-first. The list is stored
// newest-first, so the read reverses it.
func (s *JobStore) GetMessages(ctx context.Context, jobRef string) ([]models.Message, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	raw, err := s.client.LRange(ctx, messagesKey(jobRef), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages for %s: %w", jobRef, err)
	}

	msgs := make([]models.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.Message
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			s.logger.Warn().Err(err).Str("job_ref", jobRef).Msg("skipping malformed message entry")
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ListJobs returns up to limit jobs, newest first. Dangling index entries
// (purged jobs) are skipped.
func (s *JobStore) ListJobs(ctx context.Context, limit int64) ([]*models.JobRecord, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.LRange(ctx, jobsListKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*models.JobRecord, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// FindJobsByRego resolves the best-effort plate index. The index is a
// list, not a set: repeat customers produce multiple entries.
func (s *JobStore) FindJobsByRego(ctx context.Context, rego string) ([]*models.JobRecord, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ids, err := s.client.LRange(ctx, regoJobsKey(rego), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rego index for %s: %w", rego, err)
	}

	seen := make(map[string]bool, len(ids))
	jobs := make([]*models.JobRecord, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		job, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// FindJobsBySupplier scans recent jobs for a supplier-name match. Bounded
// scan: the jobs list is newest-first and portal views only need the
// working set.
func (s *JobStore) FindJobsBySupplier(ctx context.Context, supplierName string, limit int64) ([]*models.JobRecord, error) {
	jobs, err := s.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	matched := make([]*models.JobRecord, 0)
	for _, job := range jobs {
		if job.SupplierName == supplierName {
			matched = append(matched, job)
		}
	}
	return matched, nil
}
