// Package ingest orchestrates validation, duplicate checking and the
// dual-sink write for event records arriving from the web form or from a
// bulk file upload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/filestore"
	"github.com/agenda-distribuida/events-service/internal/models"
	"github.com/agenda-distribuida/events-service/internal/notifier"
	"github.com/agenda-distribuida/events-service/internal/repository"
	"github.com/agenda-distribuida/events-service/internal/validation"
)

// Level classifies a user-facing pipeline message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one user-facing outcome line of an ingestion attempt.
type Message struct {
	Level Level
	Text  string
}

// Result collects the outcome messages of one ingestion attempt.
type Result struct {
	Messages []Message
}

// OK reports whether the attempt produced no error-level messages.
// Warnings (such as a duplicate skipped in the database sink) still
// count as an overall success.
func (r *Result) OK() bool {
	for _, m := range r.Messages {
		if m.Level == LevelError {
			return false
		}
	}
	return true
}

func (r *Result) add(level Level, format string, args ...interface{}) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

// RecordOptions selects the sinks for the single-record path.
type RecordOptions struct {
	SaveToDB   bool
	WriteFile  bool
	FileFormat filestore.Format
}

// Pipeline wires the validator, the repository sink and the file sink.
type Pipeline struct {
	repo         repository.EventRepository
	files        *filestore.Store
	notify       *notifier.Notifier
	log          zerolog.Logger
	bulkInsertDB bool
}

func New(repo repository.EventRepository, files *filestore.Store, notify *notifier.Notifier, bulkInsertDB bool, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		repo:         repo,
		files:        files,
		notify:       notify,
		log:          log,
		bulkInsertDB: bulkInsertDB,
	}
}

// IngestRecord runs the single-record path: validate, then write to each
// selected sink independently. A duplicate in the database produces a
// warning and skips the row, but does not prevent the file write.
func (p *Pipeline) IngestRecord(ctx context.Context, rec models.Record, opts RecordOptions) *Result {
	res := &Result{}

	if errs := validation.Validate(rec); len(errs) > 0 {
		for _, msg := range errs {
			res.add(LevelError, "%s", msg)
		}
		return res
	}

	if opts.SaveToDB {
		p.writeDatabaseSink(ctx, rec, res)
	}

	if opts.WriteFile {
		name, err := p.files.Write(opts.FileFormat, []models.Record{rec})
		if err != nil {
			res.add(LevelError, "Could not save event '%s' to a file.", rec.Title)
		} else {
			res.add(LevelSuccess, "Event '%s' saved to file %s.", rec.Title, name)
			p.notify.Publish(ctx, "event_file_written", map[string]interface{}{
				"title": rec.Title,
				"date":  rec.Date,
				"file":  name,
			})
		}
	}

	return res
}

func (p *Pipeline) writeDatabaseSink(ctx context.Context, rec models.Record, res *Result) {
	existing, err := p.repo.FindDuplicate(ctx, rec)
	if err != nil {
		res.add(LevelError, "Could not check the database for duplicates.")
		return
	}
	if existing != nil {
		res.add(LevelWarning, "Event '%s' already exists in the database.", rec.Title)
		return
	}

	event := &models.Event{Record: rec}
	err = p.repo.Create(ctx, event)
	if errors.Is(err, repository.ErrDuplicateEvent) {
		// Lost the race to a concurrent insert; same outcome as the
		// duplicate check above.
		res.add(LevelWarning, "Event '%s' already exists in the database.", rec.Title)
		return
	}
	if err != nil {
		res.add(LevelError, "Could not save event '%s' to the database.", rec.Title)
		return
	}

	res.add(LevelSuccess, "Event '%s' saved to the database.", rec.Title)
	p.notify.Publish(ctx, "event_created", map[string]interface{}{
		"id":    event.ID,
		"title": event.Title,
		"date":  event.Date,
	})
}

// IngestUpload runs the bulk path for an uploaded file. The raw upload is
// persisted before content validation and deleted again on any failure,
// so a bulk file is committed all-or-nothing.
func (p *Pipeline) IngestUpload(ctx context.Context, filename string, content io.Reader) *Result {
	res := &Result{}

	format, ok := filestore.FormatForName(filename)
	if !ok {
		res.add(LevelError, "File must be .json or .xml.")
		return res
	}

	stored, err := p.files.SaveUpload(format, content)
	if err != nil {
		res.add(LevelError, "Could not store the uploaded file.")
		return res
	}

	records, err := p.files.ParseFile(stored)
	if err != nil {
		p.discard(stored)
		res.add(LevelError, "Could not read file: %v.", err)
		return res
	}

	for i, rec := range records {
		if errs := validation.Validate(rec); len(errs) > 0 {
			p.discard(stored)
			res.add(LevelError, "Record %d in '%s' failed validation: %s", i+1, filename, errs[0])
			return res
		}
	}

	if len(records) == 0 {
		p.discard(stored)
		res.add(LevelError, "File '%s' failed validation and was removed.", filename)
		return res
	}

	conflict := false
	for _, rec := range records {
		existing, err := p.repo.FindDuplicate(ctx, rec)
		if err != nil {
			p.discard(stored)
			res.add(LevelError, "Could not check the database for duplicates.")
			return res
		}
		if existing != nil {
			res.add(LevelError, "Event '%s' already exists in the database.", rec.Title)
			conflict = true
		}
	}
	if conflict {
		p.discard(stored)
		return res
	}

	if p.bulkInsertDB {
		for _, rec := range records {
			err := p.repo.Create(ctx, &models.Event{Record: rec})
			if errors.Is(err, repository.ErrDuplicateEvent) {
				p.discard(stored)
				res.add(LevelError, "Event '%s' already exists in the database.", rec.Title)
				return res
			}
			if err != nil {
				p.discard(stored)
				res.add(LevelError, "Could not save event '%s' to the database.", rec.Title)
				return res
			}
		}
	}

	res.add(LevelSuccess, "File '%s' uploaded and processed. %d events added.", filename, len(records))
	p.notify.Publish(ctx, "file_ingested", map[string]interface{}{
		"file":    stored,
		"records": len(records),
	})
	return res
}

func (p *Pipeline) discard(name string) {
	if err := p.files.Remove(name); err != nil {
		p.log.Error().Err(err).Str("file", name).Msg("Failed to remove rejected upload")
	}
}
