package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/oficios-api/internal/models"
)

const insertAuditLog = `INSERT INTO audit_logs
	(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES
	(:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`

// AuditRepository appends to audit_logs. Bound to a transaction it commits or
// rolls back together with the lifecycle change it describes.
type AuditRepository struct {
	db Queryer
}

// NewAuditRepository binds the repository to a pool or a transaction.
func NewAuditRepository(db Queryer) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog assigns an id and timestamp when missing and inserts the entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertAuditLog, entry); err != nil {
		return fmt.Errorf("insert audit log %s on %s: %w", entry.Action, entry.Resource, err)
	}
	return nil
}
