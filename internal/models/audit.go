package models

import "time"

// Audit actions written to audit_logs.
const (
	AuditActionRequestCreate        = "REQUEST_CREATE"
	AuditActionRequestUpdate        = "REQUEST_UPDATE"
	AuditActionRequestDelete        = "REQUEST_DELETE"
	AuditActionResponseCreate       = "RESPONSE_CREATE"
	AuditActionResponseUpdate       = "RESPONSE_UPDATE"
	AuditActionResponseFinalize     = "RESPONSE_FINALIZE"
	AuditActionResponseSend         = "RESPONSE_SEND"
	AuditActionResponseDelete       = "RESPONSE_DELETE"
	AuditActionCorrelativeAllocated = "CORRELATIVE_ALLOCATED"
	AuditActionLetterRender         = "LETTER_RENDER"
)

// AuditLog is one row of the append-only audit trail. NewValues holds a JSON
// document describing what changed or what was read.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewAuditLog starts an entry; empty actor or resource ids stay NULL.
func NewAuditLog(action, resource, actorID, resourceID string) *AuditLog {
	entry := &AuditLog{Action: action, Resource: resource}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}
