package mongodb

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/event"

	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
)

// ignoredCommands are driver housekeeping commands that would drown the query metrics
var ignoredCommands = map[string]bool{
	"hello":        true,
	"isMaster":     true,
	"ping":         true,
	"saslStart":    true,
	"saslContinue": true,
	"endSessions":  true,
	"buildInfo":    true,
}

// NewCommandMonitor returns a driver monitor that records each command as a
// MongoDB operation metric and a DatabaseQuery log line
func NewCommandMonitor(m *metrics.Metrics, logger *logging.Logger) *event.CommandMonitor {
	var collections sync.Map // request id -> collection name

	record := func(ctx context.Context, requestID int64, command string, finished event.CommandFinishedEvent, success bool) {
		name, ok := collections.LoadAndDelete(requestID)
		if !ok {
			return
		}
		collection := name.(string)
		if m != nil {
			m.RecordMongoDBOperation(collection, command, success, finished.Duration)
		}
		if logger != nil {
			logger.DatabaseQuery(ctx, collection, command, finished.Duration, success, 0)
		}
	}

	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			if ignoredCommands[e.CommandName] {
				return
			}
			collection, ok := e.Command.Lookup(e.CommandName).StringValueOK()
			if !ok {
				collection = e.DatabaseName
			}
			collections.Store(e.RequestID, collection)
		},
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			record(ctx, e.RequestID, e.CommandName, e.CommandFinishedEvent, true)
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			record(ctx, e.RequestID, e.CommandName, e.CommandFinishedEvent, false)
		},
	}
}
