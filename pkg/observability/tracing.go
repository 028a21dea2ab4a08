package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray segments. Outside a traced request every call is a
// no-op.
type Tracer struct {
	serviceName string
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
	}
}

// Middleware opens one segment per HTTP request
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	return xray.Handler(xray.NewFixedSegmentNamer(t.serviceName), next)
}

// TraceFunction runs fn inside a subsegment when the context is traced
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	if xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSubsegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, name))
	err := fn(ctx)
	if err != nil {
		seg.AddError(err)
	}
	seg.Close(err)
	return err
}
