package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abihf/sharedframe"
	"github.com/abihf/sharedframe/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	conf := Load(filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, Default(), conf)
	require.NoError(t, conf.Validate())
	assert.Equal(t, 2764800, conf.Geometry().Size())
	assert.Equal(t, lock.Spin, conf.ProducerLock().Strategy)
	assert.Equal(t, lock.Poll, conf.ConsumerLock().Strategy)
	assert.Equal(t, 10*time.Millisecond, conf.ConsumerLock().Interval)
	assert.Zero(t, conf.ConsumerLock().Timeout)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	body := `{"width": 10, "height": 10, "consumer_wait": "notify", "timeout": 500, "recovery": "force", "cpu": 2}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	conf := Load(path)
	require.NoError(t, conf.Validate())
	assert.Equal(t, 300, conf.Geometry().Size())
	assert.Equal(t, lock.Notify, conf.ConsumerLock().Strategy)
	assert.Equal(t, 500*time.Millisecond, conf.ProducerLock().Timeout)
	assert.Equal(t, sharedframe.RecoverForce, conf.ProducerOptions().Recovery)
	assert.Equal(t, 2, conf.CPU)
	assert.Equal(t, "frame.mmap", conf.RegionFile)
}

func TestLoadMalformedFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	assert.Equal(t, Default(), Load(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"geometry", func(c *Config) { c.Width = -1 }},
		{"gray channels", func(c *Config) { c.Channels = 1 }},
		{"backend", func(c *Config) { c.Backend = "dshow" }},
		{"producer wait", func(c *Config) { c.ProducerWait = "yield" }},
		{"consumer wait", func(c *Config) { c.ConsumerWait = "yield" }},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }},
		{"recovery", func(c *Config) { c.Recovery = "retry" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestOptionsCarryFiles(t *testing.T) {
	c := Default()
	c.MetaFile = ""
	p := c.ProducerOptions()
	assert.Equal(t, "frame.mmap", p.Files.Region)
	assert.Equal(t, "frame.lock", p.Files.Lock)
	assert.Empty(t, p.Files.Meta)
	assert.Equal(t, c.Geometry(), c.ConsumerOptions().Geometry)
}

func TestFlagsOverride(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Bind(fs)
	require.NoError(t, fs.Parse([]string{
		"-config", filepath.Join(t.TempDir(), "none.json"),
		"-width", "640", "-height", "480", "-wait", "notify",
	}))

	conf, err := f.Load(false)
	require.NoError(t, err)
	assert.Equal(t, 640*480*3, conf.Geometry().Size())
	assert.Equal(t, lock.Notify, conf.ConsumerLock().Strategy)
	assert.Equal(t, lock.Spin, conf.ProducerLock().Strategy)

	conf, err = f.Load(true)
	require.NoError(t, err)
	assert.Equal(t, lock.Notify, conf.ProducerLock().Strategy)
}

func TestFlagsRejectInvalid(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Bind(fs)
	require.NoError(t, fs.Parse([]string{"-config", filepath.Join(t.TempDir(), "none.json"), "-wait", "sleep"}))
	_, err := f.Load(true)
	assert.Error(t, err)
}
