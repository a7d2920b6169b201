// Package api contains API contract definitions for the CPT Data Merger.
// Version v1 represents the current stable API version.
package api

import (
	"cptmerge/pkg/contracts/domain"
)

// Session API Requests

// CreateSessionRequest opens a new workspace.
type CreateSessionRequest struct {
	ProjectName string `json:"project_name" validate:"omitempty,max=120"`
}

// UpdateSessionRequest renames the project.
type UpdateSessionRequest struct {
	ProjectName string `json:"project_name" validate:"required,max=120"`
}

// Sounding API Requests

// TableRow is one row of the editable sounding table.
type TableRow struct {
	Name               string  `json:"name" validate:"required,max=120"`
	ReferenceElevation float64 `json:"reference_elevation"`
}

// ReplaceTableRequest replaces name and reference elevation of every
// sounding at once. Rows are matched to soundings by position.
type ReplaceTableRequest struct {
	Rows []TableRow `json:"rows" validate:"dive"`
}

// ChartRequest holds the query parameters of the chart and export endpoints.
type ChartRequest struct {
	Variable string  `query:"x" validate:"omitempty"`
	XMax     float64 `query:"xmax" validate:"omitempty,gt=0"`
}

// Responses

// SessionResponse wraps a session with its soundings.
type SessionResponse struct {
	Session domain.Session `json:"session"`
}

// SoundingListResponse is the sounding table in upload order.
type SoundingListResponse struct {
	Soundings []domain.Sounding `json:"soundings"`
	Count     int               `json:"count"`
}

// UploadFailure names a file that could not be read.
type UploadFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// UploadResponse reports the soundings created by one upload.
type UploadResponse struct {
	Added  []domain.Sounding `json:"added"`
	Failed []UploadFailure   `json:"failed,omitempty"`
}

// RecordsResponse lists the processed records of one sounding.
type RecordsResponse struct {
	Sounding domain.ProcessedSounding `json:"sounding"`
}

// VariableInfo describes one selectable x-axis quantity.
type VariableInfo struct {
	Name       domain.Variable `json:"name"`
	Title      string          `json:"title"`
	MajorTick  float64         `json:"major_tick"`
	MinorTick  float64         `json:"minor_tick"`
	DefaultMax float64         `json:"default_max"`
	SliderMax  float64         `json:"slider_max"`
}

// VariablesResponse lists the x-axis quantities and the soil zone table.
type VariablesResponse struct {
	Variables []VariableInfo    `json:"variables"`
	Zones     []domain.SoilZone `json:"zones"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Sessions  int    `json:"sessions"`
	Timestamp string `json:"timestamp"`
}
