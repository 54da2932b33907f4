package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/storage"
)

type scoreboardStub struct {
	entries []models.ScoreboardEntry
	calls   int
}

func (s *scoreboardStub) Scoreboard(ctx context.Context, filter models.ScoreboardFilter) ([]models.ScoreboardEntry, int, error) {
	s.calls++
	var matched []models.ScoreboardEntry
	for _, e := range s.entries {
		if filter.Tier == "" || e.Tier == filter.Tier {
			matched = append(matched, e)
		}
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []models.ScoreboardEntry{}, len(matched), nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func entry(rank int, student string, composite float64, tier string) models.ScoreboardEntry {
	return models.ScoreboardEntry{Rank: rank, ScoreProfile: models.ScoreProfile{
		StudentID:  student,
		Composite:  decimal.NewFromFloat(composite),
		Tier:       tier,
		ComputedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
}

func newExportServiceForTest(t *testing.T, source scoreboardSource) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, nil, zap.NewNop())
}

func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, "/api/v1/exports/"))
	return strings.TrimPrefix(url, "/api/v1/exports/")
}

func TestExportScoreboardCSVRoundTrip(t *testing.T) {
	source := &scoreboardStub{entries: []models.ScoreboardEntry{
		entry(1, "stu-1", 88.5, "PLATINUM"),
		entry(2, "stu-2", 71, "GOLD"),
	}}
	svc := newExportServiceForTest(t, source)

	res, err := svc.ExportScoreboard(context.Background(), dto.ExportScoreboardRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, models.ExportFormatCSV, res.Format)

	download, err := svc.Open(tokenFromURL(t, res.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.True(t, strings.HasPrefix(download.Filename, "scoreboard_all_"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	content := string(body)
	assert.Contains(t, content, "Rank,Student ID")
	assert.Contains(t, content, "stu-1")
	assert.Contains(t, content, "88.50")
}

func TestExportScoreboardPagesThroughAllRows(t *testing.T) {
	entries := make([]models.ScoreboardEntry, 0, 250)
	for i := 0; i < 250; i++ {
		entries = append(entries, entry(i+1, "stu", 10, "BRONZE"))
	}
	source := &scoreboardStub{entries: entries}
	svc := newExportServiceForTest(t, source)

	res, err := svc.ExportScoreboard(context.Background(), dto.ExportScoreboardRequest{Format: "xlsx", Tier: "BRONZE"})
	require.NoError(t, err)
	assert.Equal(t, 250, res.Rows)
	assert.Equal(t, 3, source.calls)
}

func TestExportScoreboardRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t, &scoreboardStub{})
	_, err := svc.ExportScoreboard(context.Background(), dto.ExportScoreboardRequest{Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportOpenRejectsTamperedToken(t *testing.T) {
	svc := newExportServiceForTest(t, &scoreboardStub{entries: []models.ScoreboardEntry{entry(1, "stu-1", 50, "BRONZE")}})
	res, err := svc.ExportScoreboard(context.Background(), dto.ExportScoreboardRequest{Format: "pdf"})
	require.NoError(t, err)

	_, err = svc.Open(tokenFromURL(t, res.DownloadURL) + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
