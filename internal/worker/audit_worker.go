package worker

import (
	"github.com/mindboost/academy-auth/internal/service"
)

// StartAuditWorker registers audit handlers on the event bus.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
