package models

import "time"

// Series is a candidate time series from the data API catalog.
// Identity is ID; Title doubles as a proxy for "same underlying data".
type Series struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Units          string `json:"units,omitempty"`
	Popularity     int    `json:"popularity"`
	Frequency      string `json:"frequency,omitempty"`
	ObservationEnd string `json:"observation_end,omitempty"`
	LastUpdated    string `json:"last_updated,omitempty"`
}

// Observation is one dated value of a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// CategoryNode is one node of the data API category tree.
type CategoryNode struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID int    `json:"parent_id"`
}
