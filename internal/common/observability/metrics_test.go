package observability

import (
	"context"
	"testing"
	"time"

	"gfn-loan-service/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestObservability_NilSafe(t *testing.T) {
	var o *Observability
	o.RecordStage(context.Background(), "submit", time.Second, true)
	assert.NoError(t, o.Shutdown(context.Background()))

	empty := &Observability{}
	empty.RecordStage(context.Background(), "submit", time.Second, false)
	assert.NoError(t, empty.Shutdown(context.Background()))
}

func TestObservability_StageEventOnSpan(t *testing.T) {
	o := New("gfn-loan-service-test", logger.NewNoOpLogger())
	defer o.Shutdown(context.Background())

	ctx, span := o.tracerProvider.Tracer("test").Start(context.Background(), "submit")
	o.RecordStage(ctx, "submit", 120*time.Millisecond, true)
	span.End()

	assert.True(t, span.SpanContext().HasTraceID())
}
