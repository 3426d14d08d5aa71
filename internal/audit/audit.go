package audit

import (
	"context"
	"strings"
	"sync"

	"github.com/chesszebra/lidraughts-oauth-server/model"
	"github.com/google/uuid"
)

var auditRepo AuditEventRepository
var initOnce sync.Once

func Initialize(repo AuditEventRepository) {
	initOnce.Do(func() {
		auditRepo = repo
	})
}

const (
	EventTypeConsentGranted = "consent_granted"
	EventTypeConsentDenied  = "consent_denied"
	EventTypeCodeRedeemed   = "code_redeemed"
	EventTypeTokenRefreshed = "token_refreshed"
)

// ConsentRecord captures the resource owner's decision on a consent page.
type ConsentRecord struct {
	UserID    string
	ClientID  string
	Scopes    []string
	Approved  bool
	IP        string
	UserAgent string
}

// IssuanceRecord captures a token-endpoint grant.
type IssuanceRecord struct {
	UserID    string
	ClientID  string
	GrantType string
	Scopes    []string
	IP        string
}

func RecordConsent(ctx context.Context, record ConsentRecord) error {
	if auditRepo == nil {
		return nil
	}
	eventType := EventTypeConsentDenied
	if record.Approved {
		eventType = EventTypeConsentGranted
	}
	return auditRepo.RecordEvent(ctx, &model.AuditEvent{
		EventID:   uuid.NewString(),
		UserID:    record.UserID,
		ClientID:  record.ClientID,
		EventType: eventType,
		Scopes:    strings.Join(record.Scopes, " "),
		IP:        record.IP,
		UserAgent: record.UserAgent,
	})
}

func RecordIssuance(ctx context.Context, record IssuanceRecord) error {
	if auditRepo == nil {
		return nil
	}
	eventType := EventTypeCodeRedeemed
	if record.GrantType == "refresh_token" {
		eventType = EventTypeTokenRefreshed
	}
	return auditRepo.RecordEvent(ctx, &model.AuditEvent{
		EventID:   uuid.NewString(),
		UserID:    record.UserID,
		ClientID:  record.ClientID,
		EventType: eventType,
		Scopes:    strings.Join(record.Scopes, " "),
		IP:        record.IP,
	})
}
