// Package handlers holds the HTTP endpoints: the public patient link
// pages and the staff JSON API.
package handlers

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atwonio16/noshowdentalclinic/internal/confirmation"
	"github.com/atwonio16/noshowdentalclinic/internal/token"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// ConfirmationService resolves a patient link token into an outcome.
type ConfirmationService interface {
	Handle(ctx context.Context, tokenValue string, purpose token.Purpose) (*confirmation.Result, error)
}

// TokenActionHandler serves the confirm and cancel links from the SMS.
type TokenActionHandler struct {
	service ConfirmationService
	logger  *logging.Logger
}

func NewTokenActionHandler(service ConfirmationService, logger *logging.Logger) *TokenActionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TokenActionHandler{service: service, logger: logger}
}

// Confirm handles GET /c/{token}.
func (h *TokenActionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, token.PurposeConfirm)
}

// Cancel handles GET /x/{token}.
func (h *TokenActionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, token.PurposeCancel)
}

func (h *TokenActionHandler) action(w http.ResponseWriter, r *http.Request, purpose token.Purpose) {
	tokenValue := chi.URLParam(r, "token")
	if tokenValue == "" {
		writeActionPage(w, http.StatusBadRequest, false, "Link invalid.")
		return
	}

	res, err := h.service.Handle(r.Context(), tokenValue, purpose)
	if err != nil {
		h.logger.Error("token action failed", "error", err, "purpose", purpose)
		writeActionPage(w, http.StatusInternalServerError, false, "A aparut o eroare. Incercati din nou mai tarziu.")
		return
	}
	writeActionPage(w, http.StatusOK, res.Success, res.Message)
}

// writeActionPage renders the minimal page a patient lands on. All
// outcomes look the same apart from the message, so the page itself
// leaks nothing.
func writeActionPage(w http.ResponseWriter, status int, success bool, msg string) {
	heading := "Informare"
	if success {
		heading = "Confirmare"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!doctype html>
<html lang="ro">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Confirmor</title></head>
<body style="font-family: sans-serif; max-width: 32rem; margin: 4rem auto; padding: 0 1rem;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, html.EscapeString(heading), html.EscapeString(msg))
}
