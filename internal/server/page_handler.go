package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/filestore"
	"github.com/agenda-distribuida/events-service/internal/ingest"
	"github.com/agenda-distribuida/events-service/internal/models"
	"github.com/agenda-distribuida/events-service/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// PageHandler serves the HTML pages: the aggregated index, the add and
// upload forms, and the raw file/database views.
type PageHandler struct {
	repo           repository.EventRepository
	files          *filestore.Store
	pipeline       *ingest.Pipeline
	indexIncludeDB bool
	log            *zerolog.Logger
}

func NewPageHandler(repo repository.EventRepository, files *filestore.Store, pipeline *ingest.Pipeline, indexIncludeDB bool, log *zerolog.Logger) *PageHandler {
	return &PageHandler{
		repo:           repo,
		files:          files,
		pipeline:       pipeline,
		indexIncludeDB: indexIncludeDB,
		log:            log,
	}
}

// Index renders the aggregated events from the file store; database rows
// are included only when configured.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	scan, err := h.files.Scan()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to scan storage root")
		http.Error(w, "Failed to read stored events", http.StatusInternalServerError)
		return
	}

	events := scan.AllEvents()
	if h.indexIncludeDB {
		rows, err := h.repo.List(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to list database events")
		} else {
			for _, e := range rows {
				events = append(events, e.Record)
			}
		}
	}

	h.render(w, "index.html", map[string]interface{}{
		"Events": events,
	})
}

// AddEvent renders the form on GET and runs the single-record ingestion
// path on POST, re-rendering the form with the pipeline's messages.
func (h *PageHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, "add_event.html", map[string]interface{}{})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render(w, "add_event.html", map[string]interface{}{
			"Messages": []ingest.Message{{Level: ingest.LevelError, Text: "Could not read the submitted form."}},
		})
		return
	}

	rec := models.Record{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Date:        r.FormValue("date"),
		Location:    r.FormValue("location"),
		Organizer:   r.FormValue("organizer"),
	}

	opts := ingest.RecordOptions{
		SaveToDB: r.FormValue("save_to_db") != "",
	}
	switch r.FormValue("format") {
	case "", "json":
		opts.WriteFile = true
		opts.FileFormat = filestore.FormatJSON
	case "xml":
		opts.WriteFile = true
		opts.FileFormat = filestore.FormatXML
	}

	result := h.pipeline.IngestRecord(r.Context(), rec, opts)

	h.render(w, "add_event.html", map[string]interface{}{
		"Messages": result.Messages,
	})
}

// UploadFile renders the upload form on GET and runs the bulk ingestion
// path on POST.
func (h *PageHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, "upload_file.html", map[string]interface{}{})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.render(w, "upload_file.html", map[string]interface{}{
			"Messages": []ingest.Message{{Level: ingest.LevelError, Text: "No file was uploaded."}},
		})
		return
	}
	defer file.Close()

	result := h.pipeline.IngestUpload(r.Context(), header.Filename, file)

	h.render(w, "upload_file.html", map[string]interface{}{
		"Messages": result.Messages,
	})
}

// ViewFiles lists the parsed contents of every stored file grouped by
// format, along with the files skipped during the scan and why.
func (h *PageHandler) ViewFiles(w http.ResponseWriter, r *http.Request) {
	scan, err := h.files.Scan()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to scan storage root")
		http.Error(w, "Failed to read stored events", http.StatusInternalServerError)
		return
	}

	var jsonFiles, xmlFiles []filestore.FileDoc
	for _, f := range scan.Files {
		if f.Format == filestore.FormatJSON {
			jsonFiles = append(jsonFiles, f)
		} else {
			xmlFiles = append(xmlFiles, f)
		}
	}

	h.render(w, "view_files.html", map[string]interface{}{
		"JSONFiles": jsonFiles,
		"XMLFiles":  xmlFiles,
		"Skipped":   scan.Skipped,
	})
}

// ViewDB lists all database rows.
func (h *PageHandler) ViewDB(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list database events")
		http.Error(w, "Failed to read events", http.StatusInternalServerError)
		return
	}

	h.render(w, "view_db.html", map[string]interface{}{
		"Events": events,
	})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}
