package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventRelay subscribes the relay to the dispatcher and starts delivery.
// Sinks that are not configured are skipped.
func StartEventRelay(dispatcher events.Dispatcher, relay *EventRelay, logger *zap.Logger) {
	if dispatcher == nil || relay == nil {
		return
	}
	relay.Register(dispatcher)
	relay.Start()
	names := make([]string, 0, len(relay.sinks))
	for _, sink := range relay.sinks {
		names = append(names, sink.Name())
	}
	logger.Info("event relay started", zap.Strings("sinks", names))
}
