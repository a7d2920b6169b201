package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cptmerge/internal/chart"
	"cptmerge/internal/config"
	"cptmerge/internal/dataprocessing"
	"cptmerge/internal/exporter"
	"cptmerge/internal/infrastructure"
	"cptmerge/internal/validation"
	api "cptmerge/pkg/contracts/api/v1"
	"cptmerge/pkg/contracts/domain"
	"cptmerge/pkg/contracts/events"
)

// sniffBytes is how much of an upload is inspected before parsing.
const sniffBytes = 3072

// Broadcaster delivers session events to subscribed clients.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msg events.WebSocketMessage)
}

// MergeOptions tunes the merge service.
type MergeOptions struct {
	MaxSoundings       int
	ParseWorkers       int
	MaxUploadBytes     int64
	ChartWidth         int
	ChartHeight        int
	DefaultProject     string
	ReferenceElevation float64
}

// MergeOptionsFromConfig derives service options from the application config.
func MergeOptionsFromConfig(cfg *config.Config) MergeOptions {
	return MergeOptions{
		MaxSoundings:       cfg.Session.MaxSoundings,
		ParseWorkers:       cfg.Session.ParseWorkers,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes(),
		ChartWidth:         cfg.Chart.Width,
		ChartHeight:        cfg.Chart.Height,
		DefaultProject:     cfg.Chart.ProjectName,
		ReferenceElevation: cfg.Chart.ReferenceElevation,
	}
}

// Upload is one spreadsheet of a multipart upload.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadResult lists the soundings created by an upload and the files
// that were rejected.
type UploadResult struct {
	Added  []domain.Sounding
	Failed []api.UploadFailure
}

// ChartQuery selects the x variable and its axis maximum. A zero XMax
// uses the variable default.
type ChartQuery struct {
	Variable domain.Variable
	XMax     float64
}

// ExportResult is a rendered export ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MergeService implements the workspace operations: upload, table edits,
// chart composition and export.
type MergeService struct {
	store     *SessionStore
	parser    *dataprocessing.Parser
	processor *dataprocessing.Processor
	files     *validation.FileValidator
	exporter  *exporter.Exporter
	events    Broadcaster
	validate  *validator.Validate
	metrics   *infrastructure.BusinessMetrics
	opts      MergeOptions
	logger    *slog.Logger
}

// NewMergeService wires the service. events and metrics may be nil.
func NewMergeService(store *SessionStore, exp *exporter.Exporter, events Broadcaster, metrics *infrastructure.BusinessMetrics, opts MergeOptions, logger *slog.Logger) *MergeService {
	if opts.ParseWorkers < 1 {
		opts.ParseWorkers = 1
	}
	if opts.DefaultProject == "" {
		opts.DefaultProject = "Project"
	}
	logger = infrastructure.WithComponent(logger, "merge_service")
	return &MergeService{
		store:     store,
		parser:    dataprocessing.NewParser(logger),
		processor: dataprocessing.NewProcessor(logger),
		files:     validation.NewFileValidator(logger),
		exporter:  exp,
		events:    events,
		validate:  validator.New(),
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
	}
}

// CreateSession opens a workspace. An empty name selects the default project name.
func (s *MergeService) CreateSession(ctx context.Context, projectName string) domain.Session {
	if strings.TrimSpace(projectName) == "" {
		projectName = s.opts.DefaultProject
	}
	return s.store.Create(ctx, projectName)
}

// GetSession returns the session and its sounding table.
func (s *MergeService) GetSession(ctx context.Context, sid string) (domain.Session, error) {
	return s.store.Get(sid)
}

// DeleteSession discards a workspace.
func (s *MergeService) DeleteSession(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, sid)
}

// RenameProject changes the project name used in titles and file names.
func (s *MergeService) RenameProject(ctx context.Context, sid, name string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Session{}, fmt.Errorf("%w: project name is empty", ErrInvalidInput)
	}
	sess, err := s.store.Update(sid, func(sess *domain.Session) error {
		sess.ProjectName = name
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.publish(ctx, sid, events.MessageTypeProjectRenamed, events.ProjectEvent{ProjectName: name})
	return sess, nil
}

// Upload parses the files in parallel and appends one sounding per
// readable file, in upload order. A file that fails is reported in
// UploadResult.Failed and does not stop the others. When no file could be
// read the first failure is returned as the error.
func (s *MergeService) Upload(ctx context.Context, sid string, opts domain.ReadOptions, files []Upload) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, err
	}
	if _, err := dataprocessing.ParseColumnSpec(opts.Columns); err != nil {
		return nil, err
	}

	sess, err := s.store.Get(sid)
	if err != nil {
		return nil, err
	}
	if err := s.checkCapacity(len(sess.Soundings), len(files)); err != nil {
		return nil, err
	}

	type outcome struct {
		sounding domain.Sounding
		err      error
	}
	results := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ParseWorkers)
	for i, f := range files {
		g.Go(func() error {
			snd, err := s.readUpload(gctx, f, opts)
			results[i] = outcome{sounding: snd, err: err}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &UploadResult{}
	var firstErr error
	for i, r := range results {
		if r.err != nil {
			s.recordFailure(ctx, r.err)
			res.Failed = append(res.Failed, api.UploadFailure{File: files[i].Name, Error: r.err.Error()})
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		s.metrics.RecordUpload(ctx, r.sounding.RowCount())
		res.Added = append(res.Added, r.sounding)
	}

	if len(res.Added) > 0 {
		_, err := s.store.Update(sid, func(sess *domain.Session) error {
			if err := s.checkCapacity(len(sess.Soundings), len(res.Added)); err != nil {
				return err
			}
			for _, snd := range res.Added {
				sess.Soundings = append(sess.Soundings, snd.Clone())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, snd := range res.Added {
			s.publish(ctx, sid, events.MessageTypeSoundingAdded, soundingEvent(snd))
		}
	}

	s.logger.InfoContext(ctx, "Upload processed",
		slog.String("session_id", sid),
		slog.Int("files", len(files)),
		slog.Int("added", len(res.Added)),
		slog.Int("failed", len(res.Failed)))

	if len(res.Added) == 0 {
		return res, firstErr
	}
	return res, nil
}

func (s *MergeService) checkCapacity(existing, adding int) error {
	if s.opts.MaxSoundings > 0 && existing+adding > s.opts.MaxSoundings {
		return fmt.Errorf("%w: %d present, %d uploaded, limit %d",
			domain.ErrTooManySoundings, existing, adding, s.opts.MaxSoundings)
	}
	return nil
}

// readUpload validates, parses and test-processes one file.
func (s *MergeService) readUpload(ctx context.Context, f Upload, opts domain.ReadOptions) (domain.Sounding, error) {
	if err := s.files.ValidateUpload(f.Name, f.Size, s.opts.MaxUploadBytes); err != nil {
		return domain.Sounding{}, err
	}

	rc, err := f.Open()
	if err != nil {
		return domain.Sounding{}, &domain.ParseError{File: f.Name, Err: err}
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	head, _ := br.Peek(sniffBytes)
	if err := s.files.ValidateContent(f.Name, head); err != nil {
		return domain.Sounding{}, err
	}

	wb, err := s.parser.Parse(ctx, f.Name, br, opts)
	if err != nil {
		return domain.Sounding{}, err
	}

	base := filepath.Base(f.Name)
	snd := domain.Sounding{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSuffix(base, filepath.Ext(base)),
		SourceFile:         base,
		Sheet:              wb.Sheet,
		ReferenceElevation: s.opts.ReferenceElevation,
		Records:            wb.Records,
		UploadedAt:         time.Now().UTC(),
	}

	// Undefined SBT values are rejected here, before the sounding joins the table.
	if _, err := s.processor.Process(ctx, snd); err != nil {
		return domain.Sounding{}, err
	}
	return snd, nil
}

func (s *MergeService) recordFailure(ctx context.Context, err error) {
	var ce *domain.ComputationError
	switch {
	case errors.As(err, &ce):
		s.metrics.RecordComputationFailure(ctx)
		return
	case errors.Is(err, domain.ErrUnsupportedFileExt), errors.Is(err, validation.ErrTempFile):
		s.metrics.RecordParseFailure(ctx, "unsupported")
	case errors.Is(err, validation.ErrFileTooLarge), errors.Is(err, validation.ErrEmptyFile):
		s.metrics.RecordParseFailure(ctx, "size")
	default:
		s.metrics.RecordParseFailure(ctx, "parse")
	}
}

// ListSoundings returns the sounding table in upload order.
func (s *MergeService) ListSoundings(ctx context.Context, sid string) ([]domain.Sounding, error) {
	sess, err := s.store.Get(sid)
	if err != nil {
		return nil, err
	}
	return sess.Soundings, nil
}

// UpdateSounding edits the display name and/or reference elevation of one row.
func (s *MergeService) UpdateSounding(ctx context.Context, sid, id string, patch domain.SoundingPatch) (domain.Sounding, error) {
	if err := s.validate.Struct(patch); err != nil {
		return domain.Sounding{}, err
	}
	if patch.ReferenceElevation != nil {
		if err := checkFinite(*patch.ReferenceElevation); err != nil {
			return domain.Sounding{}, err
		}
	}

	var updated domain.Sounding
	_, err := s.store.Update(sid, func(sess *domain.Session) error {
		i := indexOf(sess.Soundings, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrSoundingNotFound, id)
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: name is empty", ErrInvalidInput)
			}
			sess.Soundings[i].Name = name
		}
		if patch.ReferenceElevation != nil {
			sess.Soundings[i].ReferenceElevation = *patch.ReferenceElevation
		}
		updated = sess.Soundings[i].Clone()
		return nil
	})
	if err != nil {
		return domain.Sounding{}, err
	}

	s.publish(ctx, sid, events.MessageTypeSoundingUpdated, soundingEvent(updated))
	return updated, nil
}

// ReplaceTable sets name and reference elevation of every sounding at
// once. Rows are matched by position and must cover every sounding.
func (s *MergeService) ReplaceTable(ctx context.Context, sid string, rows []api.TableRow) ([]domain.Sounding, error) {
	refs := make([]float64, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%w: row %d has no name", ErrInvalidInput, i+1)
		}
		if err := checkFinite(r.ReferenceElevation); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		refs[i] = r.ReferenceElevation
	}

	sess, err := s.store.Update(sid, func(sess *domain.Session) error {
		next, err := dataprocessing.ApplyReferences(sess.Soundings, refs)
		if err != nil {
			return err
		}
		for i := range next {
			next[i].Name = strings.TrimSpace(rows[i].Name)
		}
		sess.Soundings = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := events.TableEvent{Soundings: make([]events.SoundingEvent, len(sess.Soundings))}
	for i, snd := range sess.Soundings {
		evt.Soundings[i] = soundingEvent(snd)
	}
	s.publish(ctx, sid, events.MessageTypeTableReplaced, evt)
	return sess.Soundings, nil
}

// RemoveSounding deletes one row of the table.
func (s *MergeService) RemoveSounding(ctx context.Context, sid, id string) error {
	var removed domain.Sounding
	_, err := s.store.Update(sid, func(sess *domain.Session) error {
		i := indexOf(sess.Soundings, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrSoundingNotFound, id)
		}
		removed = sess.Soundings[i]
		sess.Soundings = append(sess.Soundings[:i], sess.Soundings[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, sid, events.MessageTypeSoundingRemoved, soundingEvent(removed))
	return nil
}

// Records returns one sounding with elevation, SBT index and zone per record.
func (s *MergeService) Records(ctx context.Context, sid, id string) (domain.ProcessedSounding, error) {
	snd, err := s.sounding(sid, id)
	if err != nil {
		return domain.ProcessedSounding{}, err
	}
	return s.processor.Process(ctx, snd)
}

// Summary returns column statistics and the zone distribution of one sounding.
func (s *MergeService) Summary(ctx context.Context, sid, id string) (domain.SoundingSummary, error) {
	ps, err := s.Records(ctx, sid, id)
	if err != nil {
		return domain.SoundingSummary{}, err
	}
	return dataprocessing.Summarize(ps), nil
}

// Figure composes the merged chart of every sounding in the session.
func (s *MergeService) Figure(ctx context.Context, sid string, q ChartQuery) (*chart.Figure, error) {
	p, err := s.payload(ctx, sid, q)
	if err != nil {
		return nil, err
	}
	return p.Figure, nil
}

// Export renders the session chart, or the merged table for CSV, in format f.
func (s *MergeService) Export(ctx context.Context, sid string, q ChartQuery, f exporter.Format) (*ExportResult, error) {
	if _, err := exporter.ParseFormat(string(f)); err != nil {
		return nil, err
	}
	p, err := s.payload(ctx, sid, q)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(ctx, &buf, p, f); err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    s.exporter.Filename(p, f),
		ContentType: f.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func (s *MergeService) payload(ctx context.Context, sid string, q ChartQuery) (exporter.Payload, error) {
	sess, err := s.store.Get(sid)
	if err != nil {
		return exporter.Payload{}, err
	}
	if q.Variable == "" {
		q.Variable = domain.VariableSBT
	}

	processed, err := s.processor.ProcessAll(ctx, sess.Soundings)
	if err != nil {
		return exporter.Payload{}, err
	}

	project := sess.ProjectName
	if project == "" {
		project = s.opts.DefaultProject
	}
	fig, err := chart.Compose(processed, chart.Options{
		Variable: q.Variable,
		XMax:     q.XMax,
		Title:    project,
		Width:    s.opts.ChartWidth,
		Height:   s.opts.ChartHeight,
	})
	if err != nil {
		return exporter.Payload{}, err
	}
	return exporter.Payload{Project: project, Figure: fig, Rows: dataprocessing.MergeRows(processed)}, nil
}

func (s *MergeService) sounding(sid, id string) (domain.Sounding, error) {
	sess, err := s.store.Get(sid)
	if err != nil {
		return domain.Sounding{}, err
	}
	i := indexOf(sess.Soundings, id)
	if i < 0 {
		return domain.Sounding{}, fmt.Errorf("%w: %s", domain.ErrSoundingNotFound, id)
	}
	return sess.Soundings[i], nil
}

func (s *MergeService) publish(ctx context.Context, sid string, t events.MessageType, data interface{}) {
	if s.events == nil {
		return
	}
	msg := events.NewMessage(t, sid, data)
	msg.ID = uuid.NewString()
	msg.TraceID = infrastructure.GetTraceID(ctx)
	s.events.BroadcastToSession(sid, msg)
}

func soundingEvent(snd domain.Sounding) events.SoundingEvent {
	return events.SoundingEvent{
		SoundingID:         snd.ID,
		Name:               snd.Name,
		ReferenceElevation: snd.ReferenceElevation,
		Records:            snd.RowCount(),
	}
}

func indexOf(soundings []domain.Sounding, id string) int {
	for i, snd := range soundings {
		if snd.ID == id {
			return i
		}
	}
	return -1
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: reference elevation must be a finite number", ErrInvalidInput)
	}
	return nil
}
