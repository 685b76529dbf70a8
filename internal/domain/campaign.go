package domain

import "time"

// CampaignStatus is the lifecycle state of a Campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// campaignTransitions is the allowed-edges DAG for CampaignStatus. A campaign
// can only move along these edges; anything else is rejected by CanTransition.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignCancelled},
	CampaignScheduled: {CampaignRunning, CampaignCancelled},
	CampaignRunning:   {CampaignPaused, CampaignCompleted, CampaignCancelled},
	CampaignPaused:    {CampaignRunning, CampaignCancelled},
	CampaignCompleted: {},
	CampaignCancelled: {},
}

// CanTransition reports whether moving from the receiver to next is permitted.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Campaign groups leads under a single calling policy (hours, agent persona,
// concurrency limits). Agents reference AgentPersona for greeting/name checks
// in the turn controller's guardrails.
type Campaign struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	Status             CampaignStatus `json:"status"`
	AgentName          string         `json:"agent_name"`
	AgentPersona       string         `json:"agent_persona,omitempty"`
	PropertyDetails    string         `json:"property_details,omitempty"`
	CallingHoursStart  int            `json:"calling_hours_start"`
	CallingHoursEnd    int            `json:"calling_hours_end"`
	MaxConcurrentCalls int            `json:"max_concurrent_calls"`
	MaxAttempts        int            `json:"max_attempts"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Transition moves the campaign to next, returning an error if the edge is
// not allowed by the status DAG.
func (c *Campaign) Transition(next CampaignStatus) error {
	if !c.Status.CanTransition(next) {
		return &InvalidTransitionError{Entity: "campaign", From: string(c.Status), To: string(next)}
	}
	c.Status = next
	return nil
}

// InvalidTransitionError indicates a status change that the entity's DAG
// does not permit.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return e.Entity + ": cannot transition from " + e.From + " to " + e.To
}
