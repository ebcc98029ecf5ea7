package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer(t *testing.T) {
	c := NewContainer()

	assert.NotNil(t, c.GetConfig())
	assert.NotNil(t, c.GetLogger())
	assert.NotNil(t, c.GetRegistry())
	assert.NotNil(t, c.GetServerFactory())
	assert.NotNil(t, c.GetArchiveFactory())
	assert.True(t, c.ReaderConfig().VerifyChecksums)
	assert.NotNil(t, c.ReaderConfig().Notify)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	c := NewContainer()
	require.NoError(t, c.LoadConfig(path, false))
	assert.Equal(t, 8080, c.GetConfig().Server.Port)
	assert.Error(t, c.LoadConfig(path, true))

	require.NoError(t, os.WriteFile(path, []byte("writer:\n  target_version: R2000\nserver:\n  port: 9100\n"), 0600))
	require.NoError(t, c.LoadConfig(path, false))
	assert.Equal(t, 9100, c.GetConfig().Server.Port)

	wc, err := c.WriterConfig()
	require.NoError(t, err)
	assert.Equal(t, format.AC1015, wc.Version)
	assert.NotNil(t, wc.Notify)
}

func TestConfigureLogging(t *testing.T) {
	c := NewContainer()

	require.NoError(t, c.ConfigureLogging("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, c.GetLogger().GetLevel())
	_, ok := c.GetLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	assert.Error(t, c.ConfigureLogging("loud", "text"))
	assert.Error(t, c.ConfigureLogging("info", "xml"))
}

func TestNotifyLogs(t *testing.T) {
	c := NewContainer()
	hook := test.NewLocal(c.GetLogger())

	c.Notify().Warn(notify.KindMissingReference, nil, "layer 0x2A missing")

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "missing-reference", entry.Data["kind"])
}
