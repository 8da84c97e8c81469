package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/csvimport"
	"github.com/atwonio16/noshowdentalclinic/internal/observability/metrics"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Feeds arrive as email attachments of a few hundred rows; 5 MiB is
// generous.
const maxCSVUploadBytes = 5 << 20

// Importer reconciles one uploaded snapshot.
type Importer interface {
	Import(ctx context.Context, c *clinic.Clinic, src io.Reader) (*csvimport.Summary, error)
}

// ClinicStore resolves clinics for the staff endpoints.
type ClinicStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

// CSVImportHandler accepts snapshot uploads from clinic staff.
type CSVImportHandler struct {
	importer Importer
	clinics  ClinicStore
	logger   *logging.Logger
	metrics  *metrics.ConfirmationMetrics
}

func NewCSVImportHandler(importer Importer, clinics ClinicStore, logger *logging.Logger, m *metrics.ConfirmationMetrics) *CSVImportHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CSVImportHandler{importer: importer, clinics: clinics, logger: logger, metrics: m}
}

// Import handles POST /admin/clinics/{clinicID}/import with a
// multipart "file" field.
func (h *CSVImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, `{"error": "invalid clinic id"}`, http.StatusBadRequest)
		return
	}

	c, err := h.clinics.GetByID(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("failed to load clinic", "error", err, "clinic_id", clinicID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, `{"error": "clinic not found"}`, http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error": "missing file in multipart field \"file\""}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	summary, err := h.importer.Import(r.Context(), c, file)
	if err != nil {
		h.logger.Error("csv import failed", "error", err, "clinic_id", clinicID)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	h.metrics.ObserveImportRows("upserted", summary.UpsertedRows)
	h.metrics.ObserveImportRows("canceled_missing", summary.CanceledMissing)
	h.logger.Info("csv import completed",
		"clinic_id", clinicID,
		"total_rows", summary.TotalRows,
		"upserted_rows", summary.UpsertedRows,
		"canceled_missing", summary.CanceledMissing,
	)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "summary": summary})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
