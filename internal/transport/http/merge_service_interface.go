package http

import (
	"context"

	"cptmerge/internal/chart"
	"cptmerge/internal/exporter"
	"cptmerge/internal/services"
	api "cptmerge/pkg/contracts/api/v1"
	"cptmerge/pkg/contracts/domain"
)

// MergeServiceInterface is the part of the merge service the HTTP layer uses.
type MergeServiceInterface interface {
	CreateSession(ctx context.Context, projectName string) domain.Session
	GetSession(ctx context.Context, sid string) (domain.Session, error)
	DeleteSession(ctx context.Context, sid string) error
	RenameProject(ctx context.Context, sid, name string) (domain.Session, error)

	Upload(ctx context.Context, sid string, opts domain.ReadOptions, files []services.Upload) (*services.UploadResult, error)
	ListSoundings(ctx context.Context, sid string) ([]domain.Sounding, error)
	UpdateSounding(ctx context.Context, sid, id string, patch domain.SoundingPatch) (domain.Sounding, error)
	ReplaceTable(ctx context.Context, sid string, rows []api.TableRow) ([]domain.Sounding, error)
	RemoveSounding(ctx context.Context, sid, id string) error
	Records(ctx context.Context, sid, id string) (domain.ProcessedSounding, error)
	Summary(ctx context.Context, sid, id string) (domain.SoundingSummary, error)

	Figure(ctx context.Context, sid string, q services.ChartQuery) (*chart.Figure, error)
	Export(ctx context.Context, sid string, q services.ChartQuery, f exporter.Format) (*services.ExportResult, error)
}
