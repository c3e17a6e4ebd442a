package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/models"
)

// EventRepository defines the interface for event data access
// with CRUD methods, duplicate detection and substring search.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindDuplicate(ctx context.Context, rec models.Record) (*models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Search(ctx context.Context, query string) ([]models.Event, error)
	Update(ctx context.Context, id int64, rec models.Record) error
	Delete(ctx context.Context, id int64) error
}

type eventRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB, log zerolog.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log,
	}
}

const eventColumns = `id, title, description, date, location, organizer`

// Create inserts a new event and assigns its id. A collision on the
// business key is reported as ErrDuplicateEvent.
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, date, location, organizer)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.Organizer,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		r.log.Error().Err(err).Str("title", event.Title).Msg("Failed to create event")
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to get inserted event id")
		return err
	}
	event.ID = id

	return nil
}

// FindDuplicate returns the first event matching the record's
// (title, date, location, organizer) business key, or nil if none exists.
// Description is not part of the comparison.
func (r *eventRepository) FindDuplicate(ctx context.Context, rec models.Record) (*models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE title = ? AND date = ? AND location = ? AND organizer = ?
		LIMIT 1
	`

	event, err := r.scanOne(r.db.QueryRowContext(ctx, query, rec.Title, rec.Date, rec.Location, rec.Organizer))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Str("title", rec.Title).Msg("Failed to check for duplicate event")
		return nil, err
	}

	return event, nil
}

// GetByID retrieves an event by its ID
func (r *eventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = ?
	`

	event, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		r.log.Error().Err(err).Int64("event_id", id).Msg("Failed to get event by ID")
		return nil, err
	}

	return event, nil
}

// List returns all events ordered by id
func (r *eventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list events")
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// likeEscaper quotes LIKE metacharacters so user queries match them
// literally instead of acting as wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns events whose title, location or organizer contains the
// query as a literal case-insensitive substring.
func (r *eventRepository) Search(ctx context.Context, query string) ([]models.Event, error) {
	stmt := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE title LIKE ? ESCAPE '\'
			OR location LIKE ? ESCAPE '\'
			OR organizer LIKE ? ESCAPE '\'
		ORDER BY id
	`

	pattern := "%" + likeEscaper.Replace(query) + "%"
	rows, err := r.db.QueryContext(ctx, stmt, pattern, pattern, pattern)
	if err != nil {
		r.log.Error().Err(err).Str("query", query).Msg("Failed to search events")
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update replaces all fields of an existing event
func (r *eventRepository) Update(ctx context.Context, id int64, rec models.Record) error {
	query := `
		UPDATE events
		SET title = ?, description = ?, date = ?, location = ?, organizer = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Title,
		rec.Description,
		rec.Date,
		rec.Location,
		rec.Organizer,
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		r.log.Error().Err(err).Int64("event_id", id).Msg("Failed to update event")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to get rows affected for event update")
		return err
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

// Delete removes an event from the database
func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM events WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.log.Error().Err(err).Int64("event_id", id).Msg("Failed to delete event")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to get rows affected for event delete")
		return err
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (r *eventRepository) scanOne(row *sql.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.Organizer,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) scanAll(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Date,
			&event.Location,
			&event.Organizer,
		); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan event")
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
