package api

import (
	"time"

	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	MaxUploadBytes int64
	Reader         dwg.ReaderConfig
	Writer         dwg.WriterConfig
}

// DocumentSummary describes an archived drawing
type DocumentSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Size     int       `json:"size"`
	Objects  int       `json:"objects"`
	Uploaded time.Time `json:"uploaded"`
}

func summaryOf(rec storage.Record) DocumentSummary {
	return DocumentSummary{
		ID:       rec.ID.String(),
		Name:     rec.Name,
		Version:  rec.Version,
		Size:     rec.Size,
		Objects:  rec.Objects,
		Uploaded: rec.Uploaded,
	}
}

// NotificationView is a notification as reported by the API
type NotificationView struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Handle   string `json:"handle,omitempty"`
}

// UploadResponse is returned after a drawing has been archived
type UploadResponse struct {
	Document      DocumentSummary    `json:"document"`
	Notifications []NotificationView `json:"notifications,omitempty"`
}

// DocumentDetail is the decoded content summary of a drawing
type DocumentDetail struct {
	DocumentSummary
	Types         map[string]int     `json:"types"`
	Layers        []string           `json:"layers"`
	Blocks        []string           `json:"blocks"`
	Sections      []string           `json:"sections,omitempty"`
	Notifications []NotificationView `json:"notifications,omitempty"`
}

// HandleView is one entry of the handle map
type HandleView struct {
	Handle string `json:"handle"`
	Offset int64  `json:"offset"`
}

// EntityView is one entity matched by an entity query
type EntityView struct {
	Handle string `json:"handle"`
	Type   string `json:"type"`
	Layer  string `json:"layer"`
	Block  string `json:"block,omitempty"`
	Color  int16  `json:"color"`
}
