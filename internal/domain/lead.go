package domain

import "time"

// LeadSource records where a Lead originated. Ingestion itself is out of scope;
// this enumeration only needs to round-trip through the durable store.
type LeadSource string

const (
	LeadSourceWebsite       LeadSource = "website"
	LeadSourceReferral      LeadSource = "referral"
	LeadSourceAdvertisement LeadSource = "advertisement"
	LeadSourcePartner       LeadSource = "partner"
)

// Lead is a person to be called. Created by ingestion (out of scope); mutated
// only by the executor (attempt count/timestamp). Never destroyed.
type Lead struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email,omitempty"`
	PropertyType     string     `json:"property_type,omitempty"`
	Location         string     `json:"location,omitempty"`
	Budget           *float64   `json:"budget,omitempty"`
	Source           LeadSource `json:"source,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CampaignID       *int64     `json:"campaign_id,omitempty"`
	CallAttempts     int        `json:"call_attempts"`
	LastCallAttempt  *time.Time `json:"last_call_attempt,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
