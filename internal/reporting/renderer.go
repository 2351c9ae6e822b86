package reporting

import (
	"context"

	"github.com/casinobroker/platform/internal/domain"
)

// Renderer produces the bytes of one report kind. Scheduler only owns the
// job lifecycle around it; QueryRenderer (renderers.go) is the built-in
// implementation that queries the data and encodes CSV/PDF/XLSX.
type Renderer interface {
	Render(ctx context.Context, job *domain.ReportJob) ([]byte, error)
}

// RendererFunc adapts a plain function to a Renderer.
type RendererFunc func(ctx context.Context, job *domain.ReportJob) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, job *domain.ReportJob) ([]byte, error) {
	return f(ctx, job)
}
