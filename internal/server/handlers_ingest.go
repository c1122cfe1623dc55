package server

import (
	"net/http"

	"github.com/meltforce/tinylifts/internal/importer"
)

// maxIngestBytes caps an uploaded export.
const maxIngestBytes = 10 << 20

// handleAlphaIngest imports an Alpha Progression CSV export sent as the
// request body. ?dry_run=true reports what would be imported.
func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"
	body := http.MaxBytesReader(w, r.Body, maxIngestBytes)

	stats, err := importer.New(s.store, s.log, dryRun).ImportAlpha(r.Context(), body)
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("alpha ingest", "imported", stats.SessionsImported, "duplicated", stats.SessionsDuplicated,
		"skipped", stats.SessionsSkipped, "dry_run", dryRun)
	writeJSON(w, http.StatusOK, stats)
}
