package api

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/ssargent/dwgkit/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartServerShutsDownOnCancel(t *testing.T) {
	archive, err := storage.NewDefaultStorage(t.TempDir())
	require.NoError(t, err)
	defer archive.Close()

	logger, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- StartServer(ctx, archive, ServerConfig{Bind: "127.0.0.1", Port: 0}, logger, prometheus.NewRegistry())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.NotEmpty(t, hook.AllEntries())
}

func TestServerFactory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	factory := NewServerFactory(logger, prometheus.NewRegistry())

	starter := factory.CreateServerStarter()
	require.NotNil(t, starter)
	_, ok := starter.(*DefaultServerStarter)
	assert.True(t, ok)

	archive, err := NewArchiveFactory().OpenArchive(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, archive.Close())
}
