// Package di provides dependency injection container
package di

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/dwgkit/pkg/api" //nolint:depguard
	"github.com/ssargent/dwgkit/pkg/config"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// Container holds all the dependencies for the application
type Container struct {
	config         *config.Config
	logger         *logrus.Logger
	registry       *prometheus.Registry
	serverFactory  api.ServerFactory
	archiveFactory api.ArchiveFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	registry := prometheus.NewRegistry()
	return &Container{
		config:         config.DefaultConfig(),
		logger:         logger,
		registry:       registry,
		serverFactory:  api.NewServerFactory(logger, registry),
		archiveFactory: api.NewArchiveFactory(),
	}
}

// LoadConfig replaces the configuration with the file at path. A missing
// file at the default location keeps the defaults.
func (c *Container) LoadConfig(path string, explicit bool) error {
	if !config.ConfigExists(path) && !explicit {
		return nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

// ConfigureLogging applies a level and a formatter name ("text" or "json").
func (c *Container) ConfigureLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	c.logger.SetLevel(lvl)

	switch format {
	case "", "text":
		c.logger.SetFormatter(&logrus.TextFormatter{})
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// GetConfig returns the active configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the application logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}

// GetRegistry returns the Prometheus registry
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Notify returns a handler logging notifications
func (c *Container) Notify() notify.Handler {
	return notify.Logrus(c.logger)
}

// ReaderConfig returns the configured reader settings, logging notifications
func (c *Container) ReaderConfig() dwg.ReaderConfig {
	rc := c.config.ReaderConfig()
	rc.Notify = c.Notify()
	return rc
}

// WriterConfig returns the configured writer settings, logging notifications
func (c *Container) WriterConfig() (dwg.WriterConfig, error) {
	wc, err := c.config.WriterConfig()
	if err != nil {
		return wc, err
	}
	wc.Notify = c.Notify()
	return wc, nil
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetArchiveFactory returns the archive factory
func (c *Container) GetArchiveFactory() api.ArchiveFactory {
	return c.archiveFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetArchiveFactory allows overriding the archive factory (for testing)
func (c *Container) SetArchiveFactory(factory api.ArchiveFactory) {
	c.archiveFactory = factory
}
