package service

import (
	"log/slog"

	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
)

// AuditService is the non-critical side-effect channel. Every write is
// best-effort: failures are logged and swallowed, never propagated, so an
// audit outage cannot fail an otherwise-successful access.
type AuditService struct {
	accessLogRepo repository.AccessLogRepository
}

func NewAuditService(accessLogRepo repository.AccessLogRepository) *AuditService {
	return &AuditService{accessLogRepo: accessLogRepo}
}

// Record appends an audit row. uid may be empty for anonymous events.
func (s *AuditService) Record(shareID, fileID, event, detail, uid string) {
	entry := &model.AccessLog{
		ShareID: shareID,
		FileID:  fileID,
		Event:   event,
		Detail:  detail,
	}
	if uid != "" {
		entry.UID = &uid
	}

	err := s.accessLogRepo.Append(entry)
	if err != nil {
		slog.Warn("failed to write access log", "error", err, "share_id", shareID, "event", event)
	}
}

// History returns the audit trail for a share.
func (s *AuditService) History(shareID string) ([]*model.AccessLog, error) {
	return s.accessLogRepo.AllByShare(shareID)
}
