package stub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Listings are screened against term scores when created. At or above
// flagThreshold the log lands in the review queue; between the two
// thresholds it waits as pending; below that it is approved outright.
const (
	flagThreshold    = 0.7
	pendingThreshold = 0.4
)

var screenTerms = map[string]float64{
	"stolen":      0.95,
	"weapon":      0.95,
	"counterfeit": 0.9,
	"vape":        0.85,
	"alcohol":     0.8,
	"fake":        0.7,
	"replica":     0.7,
	"ticket":      0.45,
	"account":     0.45,
}

// screenListing scores a new listing and appends the moderation log
// for it. Flagged and pending entries wait for an admin decision.
func (s *Server) screenListing(l listing) {
	text := strings.ToLower(l.Title + " " + l.Description)

	maxScore := 0.0
	for term, score := range screenTerms {
		if strings.Contains(text, term) && score > maxScore {
			maxScore = score
		}
	}

	status := models.ModerationApproved
	switch {
	case maxScore >= flagThreshold:
		status = models.ModerationFlagged
	case maxScore >= pendingThreshold:
		status = models.ModerationPending
	}

	s.cat.appendLog(reviewLog{
		ContentID:   l.ID,
		OwnerID:     l.OwnerID,
		ContentText: l.Title,
		Status:      status,
		Flagged:     status == models.ModerationFlagged,
		MaxScore:    maxScore,
	}, s.now())
}

func (s *Server) reviewQueue(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()

	status := models.ModerationFlagged
	if v := raw.Get("status"); v != "" {
		switch models.ModerationStatus(v) {
		case models.ModerationFlagged, models.ModerationPending, models.ModerationRejected:
			status = models.ModerationStatus(v)
		default:
			writeValidationError(w, queryViolation("status",
				"Input should be 'flagged', 'pending' or 'rejected'", "enum"))
			return
		}
	}

	limit := 50
	if v := raw.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeValidationError(w, queryViolation("limit", "Input should be between 1 and 100", "out_of_range"))
			return
		}
		limit = n
	}
	offset := 0
	if v := raw.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeValidationError(w, queryViolation("offset", "Input should be greater than or equal to 0", "greater_than_equal"))
			return
		}
		offset = n
	}

	logs := s.cat.logsByStatus(status, limit, offset)
	out := make([]models.ModerationEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, s.entryOf(l))
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) entryOf(l reviewLog) models.ModerationEntry {
	created := l.CreatedAt
	e := models.ModerationEntry{
		ID:          l.ID,
		ContentType: "item",
		ContentID:   strconv.Itoa(l.ContentID),
		UserID:      l.OwnerID,
		ContentText: l.ContentText,
		Status:      l.Status,
		Flagged:     l.Flagged,
		MaxScore:    l.MaxScore,
		ReviewNote:  l.ReviewNote,
		CreatedAt:   &created,
	}
	if a, err := s.cat.accountByID(l.OwnerID); err == nil {
		e.UserEmail = a.Email
	}
	return e
}

// submitReview records an admin decision. Rejection also pulls the
// listing out of the marketplace.
func (s *Server) submitReview(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	var req struct {
		LogID    int64  `json:"log_id"`
		Decision string `json:"decision"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, bodyViolation("", "Input should be a valid object", "model_attributes_type"))
		return
	}

	decision := models.ModerationStatus(req.Decision)
	if decision != models.ModerationApproved && decision != models.ModerationRejected {
		writeValidationError(w, bodyViolation("decision",
			"Input should be 'approved' or 'rejected'", "enum"))
		return
	}

	l, err := s.cat.decideLog(req.LogID, decision, req.Note, a.ID)
	if err != nil {
		switch {
		case errors.Is(err, errNoLog):
			writeError(w, http.StatusNotFound, "ReviewLogNotFound",
				"Moderation log not found", map[string]interface{}{"log_id": req.LogID})
		case errors.Is(err, errLogFinalized):
			writeError(w, http.StatusConflict, "ReviewAlreadyDecided",
				"This entry has already been reviewed", map[string]interface{}{"log_id": req.LogID})
		default:
			writeError(w, http.StatusInternalServerError, "ReviewFailed", "Could not record review", nil)
		}
		return
	}

	if decision == models.ModerationRejected {
		s.cat.deactivateListing(l.ContentID)
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "review recorded", "log_id": l.ID, "decision": string(decision),
	})
}

func (s *Server) moderationStats(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.cat.logStats())
}
