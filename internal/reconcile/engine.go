// Package reconcile merges remote scraping results into local declaration
// records.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andestraining/sence-sync-server/internal/declarations"
)

// Normalized declaration statuses. Remote values outside the known
// vocabulary fall back to StatusPending.
const (
	StatusApproved = "Aprobado"
	StatusSent     = "Enviada"
	StatusPending  = "Pendiente"
	StatusRejected = "Rechazado"
	StatusInReview = "En Revisión"
)

// statusVocabulary maps remote status strings (lowercased) to the internal
// set. The remote system is not consistent about casing or accents, so the
// table carries the variants actually observed.
var statusVocabulary = map[string]string{
	"aprobado":    StatusApproved,
	"aprobada":    StatusApproved,
	"enviada":     StatusSent,
	"enviado":     StatusSent,
	"pendiente":   StatusPending,
	"rechazado":   StatusRejected,
	"rechazada":   StatusRejected,
	"en revisión": StatusInReview,
	"en revision": StatusInReview,
}

// MalformedPayloadError indicates the remote result's top-level shape could
// not be decoded at all. Per-record problems never produce this error.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed remote result payload: %s", e.Reason)
}

// Summary reports the outcome of one reconciliation batch.
type Summary struct {
	// RecordCount is the total number of declaration entries in the payload
	RecordCount int `json:"recordCount"`

	// Processed is how many entries were successfully upserted
	Processed int `json:"processed"`

	// Failed is how many entries could not be persisted
	Failed int `json:"failed"`
}

// resultBlock is one per-course block in the remote result payload.
type resultBlock struct {
	CourseCode  string             `json:"codigo_curso"`
	Data        []declarationEntry `json:"data"`
	RemoteError string             `json:"error"`
}

// declarationEntry is a raw scraped declaration row. Field names follow the
// remote system's vocabulary.
type declarationEntry struct {
	CourseCode string `json:"codigo_curso"`
	Rut        string `json:"RUT"`
	Name       string `json:"Nombre"`
	Sessions   int    `json:"Sesiones"`
	Status     string `json:"Estado_Declaracion_Jurada"`
}

// Engine applies remote scraping results to the declaration store.
type Engine struct {
	store  declarations.Store
	logger *slog.Logger
}

// NewEngine creates a reconciliation engine backed by the given store.
func NewEngine(store declarations.Store) *Engine {
	return &Engine{
		store:  store,
		logger: slog.Default().With("component", "reconcile"),
	}
}

// Reconcile decodes the raw remote payload and upserts every declaration
// entry it contains. Entries are processed independently in payload order;
// a failing entry is counted and skipped, never aborting the batch. Only an
// undecodable top-level shape returns an error (a MalformedPayloadError).
func (e *Engine) Reconcile(ctx context.Context, payload json.RawMessage) (Summary, error) {
	blocks, err := decodeBlocks(payload)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, block := range blocks {
		for _, entry := range block.Data {
			summary.RecordCount++

			rec, err := entryToRecord(entry, block.CourseCode)
			if err != nil {
				summary.Failed++
				e.logger.Warn("Skipping unusable declaration entry",
					"course", block.CourseCode, "rut", entry.Rut, "error", err)
				continue
			}

			if _, err := e.store.Upsert(ctx, rec); err != nil {
				summary.Failed++
				e.logger.Warn("Failed to persist declaration entry",
					"course", rec.SenceCode, "rut", rec.ParticipantRut, "error", err)
				continue
			}
			summary.Processed++
		}
	}

	e.logger.Info("Reconciliation batch finished",
		"records", summary.RecordCount, "processed", summary.Processed, "failed", summary.Failed)
	return summary, nil
}

// decodeBlocks parses the top-level result list. The payload must be a JSON
// array of per-course blocks.
func decodeBlocks(payload json.RawMessage) ([]resultBlock, error) {
	if len(payload) == 0 {
		return nil, &MalformedPayloadError{Reason: "empty payload"}
	}

	var blocks []resultBlock
	if err := json.Unmarshal(payload, &blocks); err != nil {
		return nil, &MalformedPayloadError{Reason: err.Error()}
	}
	return blocks, nil
}

// entryToRecord builds a store record from a raw entry, normalizing the
// status and resolving the course code from the entry or its parent block.
func entryToRecord(entry declarationEntry, blockCourseCode string) (declarations.Record, error) {
	courseCode := entry.CourseCode
	if courseCode == "" {
		courseCode = blockCourseCode
	}
	if strings.TrimSpace(courseCode) == "" {
		return declarations.Record{}, fmt.Errorf("entry has no course code")
	}
	if strings.TrimSpace(entry.Rut) == "" {
		return declarations.Record{}, fmt.Errorf("entry has no participant RUT")
	}

	return declarations.Record{
		SenceCode:        courseCode,
		ParticipantRut:   strings.TrimSpace(entry.Rut),
		ParticipantName:  entry.Name,
		SessionsAttended: entry.Sessions,
		Status:           NormalizeStatus(entry.Status),
	}, nil
}

// NormalizeStatus maps a remote status string to the internal vocabulary.
// Unknown values map to StatusPending rather than failing.
func NormalizeStatus(remote string) string {
	if normalized, ok := statusVocabulary[strings.ToLower(strings.TrimSpace(remote))]; ok {
		return normalized
	}
	return StatusPending
}
