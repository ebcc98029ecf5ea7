// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/dwgkit/pkg/storage"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the archive until ctx is cancelled
	StartServer(ctx context.Context, archive storage.Archive, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

// ArchiveFactory opens drawing archives
type ArchiveFactory interface {
	// OpenArchive opens or creates the archive in dir
	OpenArchive(dir string) (storage.Archive, error)
}
