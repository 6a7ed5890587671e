package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/ticket"
)

const maxExtractBody = 1 << 20

type extractRequest struct {
	EmailText string `json:"emailText"`
}

type extractResponse struct {
	OK            bool                   `json:"ok"`
	TicketID      string                 `json:"ticket_id"`
	Extracted     ticket.ExtractedFlight `json:"extracted"`
	CheckInOpenAt string                 `json:"check_in_open_at"`
}

// ExtractTicket turns pasted airline e-mail text into a stored ticket.
// Missing input is a 400; every other failure is a 500.
func (h *Handlers) ExtractTicket(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxExtractBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	bearer, _ := identity.BearerToken(r.Header.Get("Authorization"))
	res, err := h.Tickets.Run(r.Context(), ticket.Request{
		Bearer:    bearer,
		EmailText: req.EmailText,
		ReqID:     chimw.GetReqID(r.Context()),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if ticket.KindOf(err) == ticket.KindBadRequest {
			status = http.StatusBadRequest
		}
		writeError(w, status, ticketMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		OK:            true,
		TicketID:      res.TicketID,
		Extracted:     res.Extracted,
		CheckInOpenAt: res.CheckInOpenAt.UTC().Format(time.RFC3339),
	})
}

func ticketMessage(err error) string {
	var te *ticket.Error
	if errors.As(err, &te) {
		return te.Msg
	}
	return "internal error"
}
