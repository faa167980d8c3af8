package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

const tracerName = "reallocation-service/mongodb"

// startSpan opens a client span for one operation on a collection
func startSpan(ctx context.Context, collection *mongo.Collection, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "mongodb."+collection.Name()+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseSpanAttributes(
			"mongodb", collection.Database().Name(), operation, collection.Name())...),
	)
}
