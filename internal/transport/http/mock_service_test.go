package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cptmerge/internal/chart"
	"cptmerge/internal/exporter"
	"cptmerge/internal/services"
	api "cptmerge/pkg/contracts/api/v1"
	"cptmerge/pkg/contracts/domain"
)

// MockMergeService is a mock implementation of MergeServiceInterface
type MockMergeService struct {
	mock.Mock
}

func (m *MockMergeService) CreateSession(ctx context.Context, projectName string) domain.Session {
	args := m.Called(ctx, projectName)
	return args.Get(0).(domain.Session)
}

func (m *MockMergeService) GetSession(ctx context.Context, sid string) (domain.Session, error) {
	args := m.Called(ctx, sid)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockMergeService) DeleteSession(ctx context.Context, sid string) error {
	return m.Called(ctx, sid).Error(0)
}

func (m *MockMergeService) RenameProject(ctx context.Context, sid, name string) (domain.Session, error) {
	args := m.Called(ctx, sid, name)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockMergeService) Upload(ctx context.Context, sid string, opts domain.ReadOptions, files []services.Upload) (*services.UploadResult, error) {
	args := m.Called(ctx, sid, opts, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UploadResult), args.Error(1)
}

func (m *MockMergeService) ListSoundings(ctx context.Context, sid string) ([]domain.Sounding, error) {
	args := m.Called(ctx, sid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Sounding), args.Error(1)
}

func (m *MockMergeService) UpdateSounding(ctx context.Context, sid, id string, patch domain.SoundingPatch) (domain.Sounding, error) {
	args := m.Called(ctx, sid, id, patch)
	return args.Get(0).(domain.Sounding), args.Error(1)
}

func (m *MockMergeService) ReplaceTable(ctx context.Context, sid string, rows []api.TableRow) ([]domain.Sounding, error) {
	args := m.Called(ctx, sid, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Sounding), args.Error(1)
}

func (m *MockMergeService) RemoveSounding(ctx context.Context, sid, id string) error {
	return m.Called(ctx, sid, id).Error(0)
}

func (m *MockMergeService) Records(ctx context.Context, sid, id string) (domain.ProcessedSounding, error) {
	args := m.Called(ctx, sid, id)
	return args.Get(0).(domain.ProcessedSounding), args.Error(1)
}

func (m *MockMergeService) Summary(ctx context.Context, sid, id string) (domain.SoundingSummary, error) {
	args := m.Called(ctx, sid, id)
	return args.Get(0).(domain.SoundingSummary), args.Error(1)
}

func (m *MockMergeService) Figure(ctx context.Context, sid string, q services.ChartQuery) (*chart.Figure, error) {
	args := m.Called(ctx, sid, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chart.Figure), args.Error(1)
}

func (m *MockMergeService) Export(ctx context.Context, sid string, q services.ChartQuery, f exporter.Format) (*services.ExportResult, error) {
	args := m.Called(ctx, sid, q, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportResult), args.Error(1)
}
