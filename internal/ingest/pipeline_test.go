package ingest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenda-distribuida/events-service/internal/database"
	"github.com/agenda-distribuida/events-service/internal/filestore"
	"github.com/agenda-distribuida/events-service/internal/models"
	"github.com/agenda-distribuida/events-service/internal/repository"
)

type fixture struct {
	pipeline *Pipeline
	repo     repository.EventRepository
	files    *filestore.Store
}

func newFixture(t *testing.T, bulkInsertDB bool) *fixture {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := filestore.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	repo := repository.NewEventRepository(db.DB(), zerolog.Nop())
	return &fixture{
		pipeline: New(repo, files, nil, bulkInsertDB, zerolog.Nop()),
		repo:     repo,
		files:    files,
	}
}

func (f *fixture) storedFileNames(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.files.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) dbCount(t *testing.T) int {
	t.Helper()
	events, err := f.repo.List(context.Background())
	require.NoError(t, err)
	return len(events)
}

func concert() models.Record {
	return models.Record{
		Title:       "Concert",
		Description: "Open air",
		Date:        "2024-06-15",
		Location:    "Hall",
		Organizer:   "City",
	}
}

func levels(res *Result) []Level {
	out := make([]Level, 0, len(res.Messages))
	for _, m := range res.Messages {
		out = append(out, m.Level)
	}
	return out
}

func TestIngestRecordBothSinks(t *testing.T) {
	f := newFixture(t, false)

	res := f.pipeline.IngestRecord(context.Background(), concert(), RecordOptions{
		SaveToDB:   true,
		WriteFile:  true,
		FileFormat: filestore.FormatJSON,
	})

	assert.True(t, res.OK())
	assert.Equal(t, []Level{LevelSuccess, LevelSuccess}, levels(res))
	assert.Equal(t, 1, f.dbCount(t))

	scan, err := f.files.Scan()
	require.NoError(t, err)
	assert.Equal(t, []models.Record{concert()}, scan.AllEvents())
}

func TestIngestRecordInvalidWritesNothing(t *testing.T) {
	f := newFixture(t, false)

	rec := concert()
	rec.Date = "2023-02-30"
	res := f.pipeline.IngestRecord(context.Background(), rec, RecordOptions{
		SaveToDB:   true,
		WriteFile:  true,
		FileFormat: filestore.FormatJSON,
	})

	assert.False(t, res.OK())
	assert.Equal(t, 0, f.dbCount(t))
	assert.Empty(t, f.storedFileNames(t))
}

func TestIngestRecordDuplicateIsSoft(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, &models.Event{Record: concert()}))

	// same business key, different description
	rec := concert()
	rec.Description = "rescheduled"
	res := f.pipeline.IngestRecord(ctx, rec, RecordOptions{
		SaveToDB:   true,
		WriteFile:  true,
		FileFormat: filestore.FormatXML,
	})

	// duplicate warns, but the file sink still runs
	assert.True(t, res.OK())
	assert.Equal(t, []Level{LevelWarning, LevelSuccess}, levels(res))
	assert.Equal(t, 1, f.dbCount(t))
	assert.Len(t, f.storedFileNames(t), 1)
}

func TestIngestRecordFileSinkOnly(t *testing.T) {
	f := newFixture(t, false)

	res := f.pipeline.IngestRecord(context.Background(), concert(), RecordOptions{
		WriteFile:  true,
		FileFormat: filestore.FormatJSON,
	})

	assert.True(t, res.OK())
	assert.Equal(t, 0, f.dbCount(t))
	assert.Len(t, f.storedFileNames(t), 1)
}

func TestIngestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t, false)

	res := f.pipeline.IngestUpload(context.Background(), "events.txt", strings.NewReader("whatever"))

	assert.False(t, res.OK())
	// rejected before any disk write
	assert.Empty(t, f.storedFileNames(t))
}

func TestIngestUploadValidBatchKeepsFileOnly(t *testing.T) {
	f := newFixture(t, false)

	content := `[
		{"title":"A","description":"","date":"2024-06-15","location":"L1","organizer":"O1"},
		{"title":"B","description":"","date":"2024-06-16","location":"L2","organizer":"O2"},
		{"title":"C","description":"","date":"2024-06-17","location":"L3","organizer":"O3"}
	]`
	res := f.pipeline.IngestUpload(context.Background(), "batch.json", strings.NewReader(content))

	assert.True(t, res.OK())
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Text, "3 events")
	assert.Len(t, f.storedFileNames(t), 1)
	// the file is the sole persisted artifact by default
	assert.Equal(t, 0, f.dbCount(t))
}

func TestIngestUploadAllOrNothing(t *testing.T) {
	f := newFixture(t, false)

	// three valid records plus one with an impossible date
	content := `[
		{"title":"A","description":"","date":"2024-06-15","location":"L1","organizer":"O1"},
		{"title":"B","description":"","date":"2024-06-16","location":"L2","organizer":"O2"},
		{"title":"C","description":"","date":"2024-06-17","location":"L3","organizer":"O3"},
		{"title":"D","description":"","date":"2023-02-30","location":"L4","organizer":"O4"}
	]`
	res := f.pipeline.IngestUpload(context.Background(), "batch.json", strings.NewReader(content))

	assert.False(t, res.OK())
	assert.Empty(t, f.storedFileNames(t))
	assert.Equal(t, 0, f.dbCount(t))
}

func TestIngestUploadMalformedContentRemovesFile(t *testing.T) {
	f := newFixture(t, false)

	res := f.pipeline.IngestUpload(context.Background(), "broken.json", strings.NewReader("{not json"))

	assert.False(t, res.OK())
	assert.Empty(t, f.storedFileNames(t))
}

func TestIngestUploadEmptyBatchFailsValidation(t *testing.T) {
	f := newFixture(t, false)

	res := f.pipeline.IngestUpload(context.Background(), "empty.json", strings.NewReader("[]"))

	assert.False(t, res.OK())
	assert.Contains(t, res.Messages[0].Text, "failed validation")
	assert.Empty(t, f.storedFileNames(t))
}

func TestIngestUploadDuplicateRejectsWholeBatch(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, &models.Event{Record: models.Record{
		Title: "B", Date: "2024-06-16", Location: "L2", Organizer: "O2",
	}}))

	content := `[
		{"title":"A","description":"","date":"2024-06-15","location":"L1","organizer":"O1"},
		{"title":"B","description":"","date":"2024-06-16","location":"L2","organizer":"O2"}
	]`
	res := f.pipeline.IngestUpload(ctx, "batch.json", strings.NewReader(content))

	assert.False(t, res.OK())
	assert.Empty(t, f.storedFileNames(t))
	assert.Equal(t, 1, f.dbCount(t))
}

func TestIngestUploadXML(t *testing.T) {
	f := newFixture(t, false)

	content := `<?xml version="1.0"?>
<events>
  <event>
    <title>Fair</title>
    <description></description>
    <date>2024-07-01</date>
    <location>Square</location>
    <organizer>Guild</organizer>
  </event>
</events>`
	res := f.pipeline.IngestUpload(context.Background(), "fair.xml", strings.NewReader(content))

	assert.True(t, res.OK())
	assert.Contains(t, res.Messages[0].Text, "1 events")
	assert.Len(t, f.storedFileNames(t), 1)
}

func TestIngestUploadBulkInsertDB(t *testing.T) {
	f := newFixture(t, true)

	content := `[
		{"title":"A","description":"","date":"2024-06-15","location":"L1","organizer":"O1"},
		{"title":"B","description":"","date":"2024-06-16","location":"L2","organizer":"O2"}
	]`
	res := f.pipeline.IngestUpload(context.Background(), "batch.json", strings.NewReader(content))

	assert.True(t, res.OK())
	assert.Len(t, f.storedFileNames(t), 1)
	assert.Equal(t, 2, f.dbCount(t))
}
