package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/util"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SupplierDirectory persists supplier records keyed by sanitized trading
// name, with a reverse index from portal code to name. Every lookup path
// sanitizes the incoming name the same way or records silently fork.
type SupplierDirectory struct {
	client *redis.Client
	logger *zerolog.Logger
}

func NewSupplierDirectory(client *redis.Client, logger *zerolog.Logger) *SupplierDirectory {
	return &SupplierDirectory{client: client, logger: logger}
}

// UpsertSupplier creates or merges a supplier record. Non-empty incoming
// fields overwrite; empty incoming fields preserve what is stored.
func (d *SupplierDirectory) UpsertSupplier(ctx context.Context, name string, incoming *models.SupplierRecord) (*models.SupplierRecord, error) {
	if d.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := util.SanitizeSupplierName(name)
	if key == "" {
		return nil, fmt.Errorf("supplier name is required")
	}

	existing, err := d.GetSupplierByName(ctx, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	merged := mergeSupplier(existing, incoming)
	merged.Name = key
	merged.UpdatedAt = now
	if merged.ID == "" {
		merged.ID = uuid.NewString()
	}
	if merged.CreatedAt == "" {
		merged.CreatedAt = now
	}

	if err := d.client.HSet(ctx, supplierKey(key), merged).Err(); err != nil {
		return nil, fmt.Errorf("failed to upsert supplier %s: %w", key, err)
	}
	if err := d.client.SAdd(ctx, suppliersSetKey, key).Err(); err != nil {
		return nil, fmt.Errorf("failed to index supplier %s: %w", key, err)
	}

	return merged, nil
}

func mergeSupplier(existing, incoming *models.SupplierRecord) *models.SupplierRecord {
	if existing == nil {
		out := *incoming
		return &out
	}

	out := *existing
	if incoming.LegalName != "" {
		out.LegalName = incoming.LegalName
	}
	if incoming.Phone != "" {
		out.Phone = incoming.Phone
	}
	if incoming.Mobile != "" {
		out.Mobile = incoming.Mobile
	}
	if incoming.PhoneLandline {
		out.PhoneLandline = true
	}
	if incoming.Email != "" {
		out.Email = incoming.Email
	}
	if incoming.Address != "" {
		out.Address = incoming.Address
	}
	if incoming.City != "" {
		out.City = incoming.City
	}
	if incoming.Postcode != "" {
		out.Postcode = incoming.Postcode
	}
	if incoming.Lat != 0 || incoming.Lng != 0 {
		out.Lat = incoming.Lat
		out.Lng = incoming.Lng
	}
	if incoming.BankName != "" {
		out.BankName = incoming.BankName
	}
	if incoming.BankAccount != "" {
		out.BankAccount = incoming.BankAccount
	}
	if incoming.BankAccountName != "" {
		out.BankAccountName = incoming.BankAccountName
	}
	if incoming.GSTNumber != "" {
		out.GSTNumber = incoming.GSTNumber
	}
	return &out
}

// GetSupplierByName returns the supplier or (nil, nil) when absent.
func (d *SupplierDirectory) GetSupplierByName(ctx context.Context, name string) (*models.SupplierRecord, error) {
	if d.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := util.SanitizeSupplierName(name)
	cmd := d.client.HGetAll(ctx, supplierKey(key))
	res, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier %s: %w", key, err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	var sup models.SupplierRecord
	if err := cmd.Scan(&sup); err != nil {
		return nil, fmt.Errorf("failed to decode supplier %s: %w", key, err)
	}
	return &sup, nil
}

// GetSupplierByPortalCode resolves a portal code to the supplier record.
// Unknown codes return (nil, nil).
func (d *SupplierDirectory) GetSupplierByPortalCode(ctx context.Context, code string) (*models.SupplierRecord, error) {
	if d.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	name, err := d.client.Get(ctx, portalCodeKey(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve portal code: %w", err)
	}
	return d.GetSupplierByName(ctx, name)
}

// EnsurePortalCode returns the supplier's portal code, generating and
// persisting one when absent. The hash field and the reverse index are
// written in one pipeline so they cannot drift apart. Idempotent: an
// existing code is never overwritten.
func (d *SupplierDirectory) EnsurePortalCode(ctx context.Context, name string) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	sup, err := d.GetSupplierByName(ctx, name)
	if err != nil {
		return "", err
	}
	if sup == nil {
		return "", fmt.Errorf("supplier %s: %w", name, ErrNotFound)
	}
	if sup.PortalCode != "" {
		return sup.PortalCode, nil
	}

	code, err := util.GeneratePortalCode(models.PortalCodeLength)
	if err != nil {
		return "", err
	}

	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, supplierKey(sup.Name), "portalCode", code)
	pipe.Set(ctx, portalCodeKey(code), sup.Name, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to persist portal code for %s: %w", sup.Name, err)
	}

	return code, nil
}

// UpdateFields merges arbitrary hash fields into a supplier record.
// Allow-listing of caller-supplied fields happens in the service layer.
func (d *SupplierDirectory) UpdateFields(ctx context.Context, name string, fields map[string]any) error {
	if d.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(fields) == 0 {
		return nil
	}
	key := util.SanitizeSupplierName(name)
	fields["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := d.client.HSet(ctx, supplierKey(key), args...).Err(); err != nil {
		return fmt.Errorf("failed to update supplier %s: %w", key, err)
	}
	return nil
}

// IncrStats bumps the aggregate counters. Best-effort by contract: callers
// log failures and move on.
func (d *SupplierDirectory) IncrStats(ctx context.Context, name string, jobs, paidCents int64) error {
	if d.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := supplierKey(util.SanitizeSupplierName(name))
	pipe := d.client.Pipeline()
	if jobs != 0 {
		pipe.HIncrBy(ctx, key, "jobCount", jobs)
	}
	if paidCents != 0 {
		pipe.HIncrBy(ctx, key, "totalPaid", paidCents)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update supplier stats for %s: %w", name, err)
	}
	return nil
}

// ListSuppliers returns every supplier in the directory.
func (d *SupplierDirectory) ListSuppliers(ctx context.Context) ([]*models.SupplierRecord, error) {
	if d.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	names, err := d.client.SMembers(ctx, suppliersSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	out := make([]*models.SupplierRecord, 0, len(names))
	for _, name := range names {
		sup, err := d.GetSupplierByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if sup != nil {
			out = append(out, sup)
		}
	}
	return out, nil
}

// CreateSupplierLink stores an ephemeral per-dispatch snapshot under a
// fresh one-time code with a bounded TTL.
func (d *SupplierDirectory) CreateSupplierLink(ctx context.Context, link *models.SupplierLink) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	code, err := util.GeneratePortalCode(models.PortalCodeLength)
	if err != nil {
		return "", err
	}
	link.Code = code
	link.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	key := supplierLinkKey(code)
	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, key, link)
	pipe.Expire(ctx, key, models.SupplierLinkTTLDays*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store supplier link: %w", err)
	}
	return code, nil
}

// GetSupplierLink returns the snapshot or (nil, nil) when expired/absent.
func (d *SupplierDirectory) GetSupplierLink(ctx context.Context, code string) (*models.SupplierLink, error) {
	if d.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	cmd := d.client.HGetAll(ctx, supplierLinkKey(code))
	res, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier link: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	var link models.SupplierLink
	if err := cmd.Scan(&link); err != nil {
		return nil, fmt.Errorf("failed to decode supplier link: %w", err)
	}
	return &link, nil
}
