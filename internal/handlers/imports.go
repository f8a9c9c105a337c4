package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"asset-inventory-api/internal/schema"
	"asset-inventory-api/pkg/importer"
)

// ImportsHandler handles CSV import operations
type ImportsHandler struct {
	DB       *pgxpool.Pool
	MaxBytes int64
	Log      *logrus.Logger
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db *pgxpool.Pool, maxBytes int64, log *logrus.Logger) *ImportsHandler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20 // 20 MB
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ImportsHandler{DB: db, MaxBytes: maxBytes, Log: log}
}

// UploadCSV handles POST /imports/{kind}. The batch either commits whole or
// rolls back; skipped rows are reported, they never abort the batch.
func (h *ImportsHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	ent, ok := schema.ByKind(chi.URLParam(r, "kind"))
	if !ok {
		http.Error(w, "unknown import kind", http.StatusNotFound)
		return
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	maxErrors := importer.DefaultMaxErrors
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	opts := importer.Options{MaxErrors: maxErrors}

	// Optional header mapping, supplied as a second YAML file part.
	if mf, _, err := r.FormFile("mapping"); err == nil {
		defer mf.Close()
		m, err := importer.LoadMapping(mf)
		if err != nil {
			http.Error(w, "invalid mapping file: "+err.Error(), http.StatusBadRequest)
			return
		}
		opts.Aliases = m.Aliases(ent.Kind)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isCSV(header) {
		http.Error(w, "only .csv files are accepted", http.StatusBadRequest)
		return
	}

	result, impErr := importer.Run(r.Context(), h.DB, ent, file, opts)
	if impErr != nil {
		h.Log.WithFields(logrus.Fields{
			"kind": ent.Kind,
			"file": header.Filename,
		}).WithError(impErr).Warn("import aborted, batch rolled back")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    result,
		})
		return
	}

	h.Log.WithFields(logrus.Fields{
		"kind":     ent.Kind,
		"file":     header.Filename,
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	}).Info("import committed")

	writeJSON(w, http.StatusOK, map[string]any{
		"data": result,
		"meta": map[string]any{
			"kind":      ent.Kind,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isCSV checks if the uploaded file is a .csv file
func isCSV(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".csv")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
