package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// Store is the subset of durable persistence the HTTP surface needs to seed
// campaigns/leads for local runs and integration tests.
type Store interface {
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	CreateLead(ctx context.Context, l *domain.Lead) error
	UnscheduledLeads(ctx context.Context, campaignID int64) ([]*domain.Lead, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func campaignIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "campaignID"), 10, 64)
}

// createCampaign handles POST /campaigns.
func (rt *Router) createCampaign(w http.ResponseWriter, r *http.Request) {
	var c domain.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if c.Status == "" {
		c.Status = domain.CampaignDraft
	}

	if err := rt.Store.CreateCampaign(r.Context(), &c); err != nil {
		observability.GetLogger().Error().Err(err).Msg("api: create campaign failed")
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// getCampaign handles GET /campaigns/{campaignID}.
func (rt *Router) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	c, err := rt.Store.GetCampaign(r.Context(), id)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("api: get campaign failed")
		writeError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// createLead handles POST /campaigns/{campaignID}/leads.
func (rt *Router) createLead(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var l domain.Lead
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l.CampaignID = &id

	if err := rt.Store.CreateLead(r.Context(), &l); err != nil {
		observability.GetLogger().Error().Err(err).Msg("api: create lead failed")
		writeError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// listUnscheduledLeads handles GET /campaigns/{campaignID}/leads: leads in
// the campaign that have not yet been enqueued as a ScheduledCall, the set
// the scheduler would pick up on its next run.
func (rt *Router) listUnscheduledLeads(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	leads, err := rt.Store.UnscheduledLeads(r.Context(), id)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("api: list leads failed")
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, leads)
}
