package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cptmerge/internal/chart"
	"cptmerge/internal/dataprocessing"
	"cptmerge/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload(t *testing.T, v domain.Variable) Payload {
	t.Helper()
	proc := dataprocessing.NewProcessor(testLogger())
	soundings, err := proc.ProcessAll(context.Background(), []domain.Sounding{
		{ID: "a", Name: "CPT-01", ReferenceElevation: 100, Records: []domain.DepthRecord{{Depth: 0, QC: 1, Rf: 1}, {Depth: 1, QC: 2, Rf: 2}}},
		{ID: "b", Name: "CPT-02", ReferenceElevation: 100.01, Records: []domain.DepthRecord{{Depth: 0.2, QC: 4, Rf: 0.8}, {Depth: 0.4, QC: 6, Rf: 0.9}, {Depth: 0.6, QC: 9, Rf: 1.2}}},
	})
	require.NoError(t, err)

	fig, err := chart.Compose(soundings, chart.Options{Variable: v, Title: "Quay Wall"})
	require.NoError(t, err)
	return Payload{Project: "Quay Wall", Figure: fig, Rows: dataprocessing.MergeRows(soundings)}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		project string
		v       domain.Variable
		f       Format
		want    string
	}{
		{"Quay Wall", domain.VariableSBT, FormatPNG, "Quay Wall_merged CPT data_SBT.png"},
		{"Project", domain.VariableQC, FormatPDF, "Project_merged CPT data_qc.pdf"},
		{"A/B", domain.VariableRf, FormatHTML, "A_B_merged CPT data_Rf.html"},
		{"  ", domain.VariableRf, FormatCSV, "Project_merged CPT data_Rf.csv"},
		{"../etc", domain.VariableQC, FormatCSV, "_etc_merged CPT data_qc.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.project, tt.v, tt.f))
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"png": FormatPNG, "PDF": FormatPDF, ".html": FormatHTML, "htm": FormatHTML, " csv ": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("svg")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	list, err := ParseFormats("png, pdf,png,html")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatPNG, FormatPDF, FormatHTML}, list)

	_, err = ParseFormats(" , ")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	_, err = ParseFormats("png,gif")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.True(t, strings.HasPrefix(FormatHTML.ContentType(), "text/html"))
	assert.True(t, strings.HasPrefix(FormatCSV.ContentType(), "text/csv"))
}

func TestWriteMergedCSV(t *testing.T) {
	p := testPayload(t, domain.VariableQC)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().WriteMerged(&buf, p.Rows))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, MergedHeaders, records[0])
	assert.Equal(t, []string{"CPT-01", "0.000", "100.000", "1.000", "1.000"}, records[1][:5])
	assert.Equal(t, "99.410", records[5][2])

	buf.Reset()
	require.NoError(t, (&CSVWriter{}).WriteMerged(&buf, nil))
	assert.Equal(t, "sounding,depth,elevation,qc,Rf,sbt,zone\n", buf.String())
}

func TestExportFormats(t *testing.T) {
	exp := New("", nil, testLogger())
	ctx := context.Background()

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.Write(ctx, &buf, testPayload(t, domain.VariableSBT), FormatPNG))
		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, chart.DefaultWidth, img.Bounds().Dx())
	})

	t.Run("pdf", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.Write(ctx, &buf, testPayload(t, domain.VariableQC), FormatPDF))
		pages, err := api.PageCount(bytes.NewReader(buf.Bytes()), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, pages)
	})

	t.Run("html", func(t *testing.T) {
		p := testPayload(t, domain.VariableRf)
		var buf bytes.Buffer
		require.NoError(t, exp.Write(ctx, &buf, p, FormatHTML))
		fig, err := chart.ReadHTML(&buf)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, fig.PointCounts())
	})

	t.Run("unknown", func(t *testing.T) {
		err := exp.Write(ctx, io.Discard, testPayload(t, domain.VariableRf), Format("gif"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})
}

func TestWriteFile(t *testing.T) {
	exp := New("", nil, testLogger())
	dir := filepath.Join(t.TempDir(), "out")
	p := testPayload(t, domain.VariableSBT)

	for _, f := range Formats {
		path, err := exp.WriteFile(context.Background(), dir, p, f)
		require.NoError(t, err, f)
		assert.Equal(t, filepath.Join(dir, "Quay Wall_merged CPT data_SBT."+string(f)), path)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err := exp.WriteFile(context.Background(), dir, p, Format("gif"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "Quay Wall_merged CPT data_SBT.gif"))
	assert.True(t, os.IsNotExist(statErr))
}
