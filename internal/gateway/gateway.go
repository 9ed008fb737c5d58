// Package gateway defines the remote save gateway: the external collaborator
// that uploads media blobs and inserts/updates memory rows on the backend.
package gateway

import (
	"context"
	"fmt"

	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// FailureKind distinguishes the gateway's failure modes.
type FailureKind string

const (
	FailureOffline    FailureKind = "offline"
	FailureQuota      FailureKind = "storage_quota"
	FailurePermission FailureKind = "permission"
	FailureNetwork    FailureKind = "network"
	FailureSave       FailureKind = "save"
)

// SaveError is the error type every gateway failure surfaces as.
type SaveError struct {
	Kind    FailureKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SaveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("save failed (%s): %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("save failed (%s): %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *SaveError) Unwrap() error {
	return e.Err
}

// Code maps the failure kind onto the application error-code taxonomy.
func (e *SaveError) Code() errors.ErrorCode {
	switch e.Kind {
	case FailureOffline:
		return errors.ErrGatewayOffline
	case FailureQuota:
		return errors.ErrGatewayQuota
	case FailurePermission:
		return errors.ErrGatewayPermission
	case FailureNetwork:
		return errors.ErrGatewayNetwork
	default:
		return errors.ErrGatewaySave
	}
}

// NewSaveError builds a SaveError.
func NewSaveError(kind FailureKind, message string, err error) *SaveError {
	return &SaveError{Kind: kind, Message: message, Err: err}
}

// Classify returns the failure kind of err, or FailureSave for anything that
// is not a SaveError.
func Classify(err error) FailureKind {
	if se, ok := err.(*SaveError); ok {
		return se.Kind
	}
	return FailureSave
}

// CaptureUpload is the save gateway's input shape, converted from a queued
// memory immediately before upload.
type CaptureUpload struct {
	MemoryType models.MemoryType `json:"memory_type"`
	InputText  string            `json:"input_text,omitempty"`
	Title      string            `json:"title,omitempty"`
	Tags       []string          `json:"tags,omitempty"`

	CapturedAt int64 `json:"captured_at"`
	MemoryDate int64 `json:"memory_date,omitempty"`

	PhotoPaths       []string `json:"photo_paths,omitempty"`
	VideoPaths       []string `json:"video_paths,omitempty"`
	VideoPosterPaths []string `json:"video_poster_paths,omitempty"`
	AudioPath        string   `json:"audio_path,omitempty"`
	AudioDuration    int      `json:"audio_duration,omitempty"`

	Latitude       float64              `json:"latitude,omitempty"`
	Longitude      float64              `json:"longitude,omitempty"`
	LocationStatus string               `json:"location_status,omitempty"`
	Location       *models.LocationData `json:"location,omitempty"`
}

// UploadFromQueued converts a queued memory to the gateway's input shape.
func UploadFromQueued(q *models.QueuedMemory) CaptureUpload {
	return CaptureUpload{
		MemoryType:       q.MemoryType,
		InputText:        q.InputText,
		Title:            q.Title,
		Tags:             q.Tags,
		CapturedAt:       q.CapturedAt,
		MemoryDate:       q.MemoryDate,
		PhotoPaths:       q.PhotoPaths,
		VideoPaths:       q.VideoPaths,
		VideoPosterPaths: q.VideoPosterPaths,
		AudioPath:        q.AudioPath,
		AudioDuration:    q.AudioDuration,
		Latitude:         q.Latitude,
		Longitude:        q.Longitude,
		LocationStatus:   q.LocationStatus,
		Location:         q.Location,
	}
}

// SaveResult is the gateway's response to a successful create or update.
type SaveResult struct {
	MemoryID       string   `json:"memory_id"`
	GeneratedTitle string   `json:"generated_title,omitempty"`
	PhotoURLs      []string `json:"photo_urls,omitempty"`
	VideoURLs      []string `json:"video_urls,omitempty"`
	HasLocation    bool     `json:"has_location"`
}

// SaveGateway uploads captures to the remote backend. Every failure is a
// *SaveError carrying one of the five failure kinds.
type SaveGateway interface {
	Create(ctx context.Context, upload CaptureUpload) (*SaveResult, error)
	Update(ctx context.Context, memoryID string, upload CaptureUpload) (*SaveResult, error)
}
