package models

import "time"

// Quote is a near-real-time quote from the live-data collaborator.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	PreviousClose float64   `json:"previousClose"`
	Volume        int64     `json:"volume"`
	Currency      string    `json:"currency,omitempty"`
	FetchedAt     time.Time `json:"fetchedAt"`
}
