package models

import "time"

// CampaignListResponse is the list view payload
type CampaignListResponse struct {
	Campaigns []Campaign `json:"campaigns"`
	Total     int        `json:"total"`
}

// BlockResponse is the home view payload. BlockNumber is nil while the
// number is unknown.
type BlockResponse struct {
	BlockNumber *uint64 `json:"block_number"`
}

// StatusResponse carries the last submission message, nil before the first
type StatusResponse struct {
	Status *string `json:"status"`
}

// CreateCampaignRequest is the creation form. Goal stays a string so a
// non-numeric entry reaches the submitter unchanged.
type CreateCampaignRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Goal        string `json:"goal"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
