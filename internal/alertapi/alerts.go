package alertapi

import (
	"io"
	"mime"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/argus/internal/alert"
)

// handleIngestAlert is the Falco-style webhook entry point. Malformed JSON
// and a missing content type are the only 400s; every processed event gets
// a 200 with its outcome.
func (a *API) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		http.Error(w, `{"error":"content type must be application/json"}`, http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
		return
	}

	ev, err := alert.Decode(body)
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("argus.alert.rule", ev.Rule),
		attribute.String("argus.alert.priority", ev.Priority),
	)

	out, err := a.svc.Process(r.Context(), ev)
	if err != nil {
		a.logger.Error(r.Context(), err, "pipeline failed", "rule", ev.Rule)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("argus.alert.outcome", out.Status))

	writeJSON(w, http.StatusOK, out)
}
