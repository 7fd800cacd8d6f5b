// internal/workers/clients/search-clients/models.go
package searchclients

import "gfn-loan-service/internal/models"

type Input struct {
	Name  string `json:"name"`
	Limit int    `json:"limit,omitempty"`
}

type Output struct {
	Results        []models.ClientSummary `json:"results"`
	TotalFound     int                    `json:"totalFound"`
	ExistingClient bool                   `json:"existingClient"`
}
