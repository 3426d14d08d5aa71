package audit

import (
	"context"
	"log/slog"

	"github.com/chesszebra/lidraughts-oauth-server/model"
	"gorm.io/gorm"
)

type AuditEventRepository interface {
	RecordEvent(ctx context.Context, event *model.AuditEvent) error
}

type auditEventRepository struct {
	db *gorm.DB
}

func (r *auditEventRepository) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func NewAuditEventRepository(db *gorm.DB) AuditEventRepository {
	return &auditEventRepository{db: db}
}

// slogAuditRepository writes events to the structured log. Used when the
// document backend is selected and no relational database is around.
type slogAuditRepository struct{}

func (r *slogAuditRepository) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	slog.Info("audit event",
		"event_id", event.EventID,
		"type", event.EventType,
		"user", event.UserID,
		"client", event.ClientID,
		"scopes", event.Scopes,
		"ip", event.IP,
	)
	return nil
}

func NewSlogAuditRepository() AuditEventRepository {
	return &slogAuditRepository{}
}
