package worker

import (
	"github.com/spec-kit/ticket-beacon/internal/indicator"
)

// StartIndicatorWorker registers the indicator's event handlers.
func StartIndicatorWorker(svc *indicator.Service) {
	if svc == nil {
		return
	}
	svc.RegisterHandlers()
}
