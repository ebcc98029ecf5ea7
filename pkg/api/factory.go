// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/dwgkit/pkg/storage"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	logger   logrus.FieldLogger
	registry *prometheus.Registry
}

// NewServerFactory creates a new server factory
func NewServerFactory(logger logrus.FieldLogger, registry *prometheus.Registry) ServerFactory {
	return &DefaultServerFactory{logger: logger, registry: registry}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{logger: f.logger, registry: f.registry}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct {
	logger   logrus.FieldLogger
	registry *prometheus.Registry
}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, archive storage.Archive, config ServerConfig) error {
	return StartServer(ctx, archive, config, s.logger, s.registry)
}

// DefaultArchiveFactory opens pebble archives
type DefaultArchiveFactory struct{}

// NewArchiveFactory creates a new archive factory
func NewArchiveFactory() ArchiveFactory {
	return &DefaultArchiveFactory{}
}

// OpenArchive opens or creates the archive in dir
func (f *DefaultArchiveFactory) OpenArchive(dir string) (storage.Archive, error) {
	return storage.NewDefaultStorage(dir)
}
