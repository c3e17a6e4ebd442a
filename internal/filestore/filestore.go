// Package filestore persists batches of event records as flat JSON or XML
// files under a storage root and enumerates them on demand. The directory
// listing is the index; there is no manifest. A malformed file is skipped
// with a reason, never aborting the scan of the remaining files.
package filestore

import (
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/models"
)

// Format selects the on-disk serialization of an event file.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// FormatForName maps a file name to its format by extension. The second
// return value is false for unrecognized extensions.
func FormatForName(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".xml":
		return FormatXML, true
	}
	return "", false
}

var requiredFields = []string{"title", "description", "date", "location", "organizer"}

// Entry is one candidate record extracted from a file, keyed by field name.
// Scan-time extraction is lenient: an entry may be incomplete, and only
// complete entries count as events.
type Entry map[string]string

// Complete reports whether the entry carries all five event fields.
func (e Entry) Complete() bool {
	for _, k := range requiredFields {
		if _, ok := e[k]; !ok {
			return false
		}
	}
	return true
}

// Record converts the entry into a typed record. Missing fields are empty.
func (e Entry) Record() models.Record {
	return models.Record{
		Title:       e["title"],
		Description: e["description"],
		Date:        e["date"],
		Location:    e["location"],
		Organizer:   e["organizer"],
	}
}

// FileDoc is the parsed content of one stored file.
type FileDoc struct {
	Name    string
	Format  Format
	Entries []Entry
}

// Events returns the complete entries of the file as typed records.
func (d FileDoc) Events() []models.Record {
	var recs []models.Record
	for _, e := range d.Entries {
		if e.Complete() {
			recs = append(recs, e.Record())
		}
	}
	return recs
}

// SkippedFile names a file excluded from a scan and why.
type SkippedFile struct {
	Name   string
	Reason string
}

// ScanResult is the outcome of one directory scan.
type ScanResult struct {
	Files   []FileDoc
	Skipped []SkippedFile
}

// AllEvents flattens the complete entries of every scanned file.
func (s ScanResult) AllEvents() []models.Record {
	var recs []models.Record
	for _, f := range s.Files {
		recs = append(recs, f.Events()...)
	}
	return recs
}

// Store reads and writes event files under an injected storage root.
type Store struct {
	root string
	log  zerolog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %v", err)
	}
	return &Store{root: dir, log: log}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Write serializes one or more records as a new file in the requested
// format under a collision-resistant random name, returning the file name.
func (s *Store) Write(format Format, records []models.Record) (string, error) {
	u := uuid.New()
	name := fmt.Sprintf("event_%s.%s", hex.EncodeToString(u[:4]), format)

	data, err := marshalRecords(format, records)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(s.root, name), data, 0644); err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("Failed to write event file")
		return "", err
	}

	s.log.Info().Str("file", name).Int("records", len(records)).Msg("Wrote event file")
	return name, nil
}

func marshalRecords(format Format, records []models.Record) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(records, "", "  ")
	case FormatXML:
		doc := xmlDoc{Events: records}
		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), data...), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

type xmlDoc struct {
	XMLName xml.Name        `xml:"events"`
	Events  []models.Record `xml:"event"`
}

// SaveUpload persists raw uploaded content under a newly generated random
// name with the format's extension, before any content validation. It
// returns the generated file name.
func (s *Store) SaveUpload(format Format, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s.%s", uuid.New().String(), format)
	path := filepath.Join(s.root, name)

	f, err := os.Create(path)
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("Failed to create upload file")
		return "", err
	}

	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()

	// A partially written file must not be left behind for later scans.
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return "", copyErr
		}
		return "", closeErr
	}

	return name, nil
}

// Remove deletes a stored file by name.
func (s *Store) Remove(name string) error {
	return os.Remove(filepath.Join(s.root, name))
}

// ParseFile parses a stored file per its extension and returns the
// complete entries as typed records. Unlike Scan, syntax and shape
// failures are returned to the caller.
func (s *Store) ParseFile(name string) ([]models.Record, error) {
	format, ok := FormatForName(name)
	if !ok {
		return nil, fmt.Errorf("unrecognized file extension on %q", name)
	}

	entries, err := s.parse(name, format)
	if err != nil {
		return nil, err
	}

	var recs []models.Record
	for _, e := range entries {
		if e.Complete() {
			recs = append(recs, e.Record())
		}
	}
	return recs, nil
}

// Scan enumerates every recognized file under the root. A file that fails
// to parse is recorded under Skipped with its reason and excluded from the
// result; it never aborts the scan.
func (s *Store) Scan() (ScanResult, error) {
	var result ScanResult

	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return result, fmt.Errorf("failed to read storage root: %v", err)
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		format, ok := FormatForName(de.Name())
		if !ok {
			continue
		}

		entries, err := s.parse(de.Name(), format)
		if err != nil {
			s.log.Warn().Str("file", de.Name()).Err(err).Msg("Skipping unreadable event file")
			result.Skipped = append(result.Skipped, SkippedFile{Name: de.Name(), Reason: err.Error()})
			continue
		}

		result.Files = append(result.Files, FileDoc{
			Name:    de.Name(),
			Format:  format,
			Entries: entries,
		})
	}

	return result, nil
}

func (s *Store) parse(name string, format Format) ([]Entry, error) {
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		return parseJSON(f)
	case FormatXML:
		return parseXML(f)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// parseJSON requires a top-level array. Array elements that are not
// objects are skipped, not reported; field values that are not strings
// are rendered with their default formatting.
func parseJSON(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("not a valid JSON array: %v", err)
	}
	// Decode stops after the first value; anything after it makes the
	// file malformed as a whole.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("not a valid JSON array: trailing data after the array")
	}

	var entries []Entry
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := make(Entry, len(obj))
		for k, v := range obj {
			entry[k] = stringify(v)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// parseXML requires an <events> root with <event> children and converts
// each child element to a tag-to-text entry. The decoder is strict and has
// no entity table, so external or recursive entity definitions fail the
// parse instead of being resolved.
func parseXML(r io.Reader) ([]Entry, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = nil

	var doc struct {
		XMLName xml.Name `xml:"events"`
		Events  []struct {
			Fields []struct {
				XMLName xml.Name
				Text    string `xml:",chardata"`
			} `xml:",any"`
		} `xml:"event"`
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("not a valid events XML document: %v", err)
	}

	var entries []Entry
	for _, ev := range doc.Events {
		entry := make(Entry, len(ev.Fields))
		for _, field := range ev.Fields {
			entry[field.XMLName.Local] = field.Text
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
