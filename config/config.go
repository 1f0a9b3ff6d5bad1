package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/abihf/sharedframe"
	"github.com/abihf/sharedframe/frame"
	"github.com/abihf/sharedframe/lock"
	"github.com/abihf/sharedframe/protocol"
	"github.com/pkg/errors"
)

const DefaultFile = "sharedframe.json"

const (
	BackendV4L2   = "v4l2"
	BackendOpenCV = "opencv"
)

type Config struct {
	Backend  string `json:"backend"`
	Device   string `json:"device"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`

	RegionFile string `json:"region_file"`
	LockFile   string `json:"lock_file"`
	MetaFile   string `json:"meta_file"`
	PidFile    string `json:"pid_file"`

	ProducerWait string `json:"producer_wait"`
	ConsumerWait string `json:"consumer_wait"`
	// PollInterval in milliseconds.
	PollInterval int `json:"poll_interval"`
	// Timeout in milliseconds, 0 waits forever.
	Timeout  int    `json:"timeout"`
	Recovery string `json:"recovery"`

	// CPU pins the producer's publishing thread when >= 0.
	CPU int `json:"cpu"`
}

func Default() *Config {
	g := frame.DefaultGeometry()
	return &Config{
		Backend:      BackendV4L2,
		Device:       "/dev/video0",
		Width:        g.Width,
		Height:       g.Height,
		Channels:     g.Channels,
		RegionFile:   protocol.RegionFile,
		LockFile:     protocol.LockFile,
		MetaFile:     protocol.MetaFile,
		PidFile:      protocol.PidFile,
		ProducerWait: string(lock.Spin),
		ConsumerWait: string(lock.Poll),
		PollInterval: int(lock.DefaultInterval / time.Millisecond),
		Recovery:     string(sharedframe.RecoverFail),
		CPU:          -1,
	}
}

// Load reads path and fills in defaults for anything it leaves unset. A missing file
// is not an error.
func Load(path string) *Config {
	conf, err := loadFromFile(path)
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		slog.Warn("Failed to load config file", "path", path, "error", err)
	}
	if conf == nil {
		conf = &Config{CPU: -1}
	}
	conf.applyDefaults()
	return conf
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.Channels == 0 {
		c.Channels = d.Channels
	}
	if c.RegionFile == "" {
		c.RegionFile = d.RegionFile
	}
	if c.LockFile == "" {
		c.LockFile = d.LockFile
	}
	if c.MetaFile == "" {
		c.MetaFile = d.MetaFile
	}
	if c.PidFile == "" {
		c.PidFile = d.PidFile
	}
	if c.ProducerWait == "" {
		c.ProducerWait = d.ProducerWait
	}
	if c.ConsumerWait == "" {
		c.ConsumerWait = d.ConsumerWait
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Recovery == "" {
		c.Recovery = d.Recovery
	}
}

func loadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{CPU: -1}
	err = json.NewDecoder(file).Decode(config)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}

	return config, nil
}

func (c *Config) Validate() error {
	if err := c.Geometry().Validate(); err != nil {
		return err
	}
	// both capture backends deliver BGR
	if c.Channels != frame.DefaultChannels {
		return errors.Errorf("channels must be %d, got %d", frame.DefaultChannels, c.Channels)
	}
	switch c.Backend {
	case BackendV4L2, BackendOpenCV:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := lock.ParseStrategy(c.ProducerWait); err != nil {
		return errors.Wrap(err, "producer_wait")
	}
	if _, err := lock.ParseStrategy(c.ConsumerWait); err != nil {
		return errors.Wrap(err, "consumer_wait")
	}
	if c.PollInterval < 0 || c.Timeout < 0 {
		return errors.New("poll_interval and timeout must not be negative")
	}
	switch sharedframe.Recovery(c.Recovery) {
	case sharedframe.RecoverFail, sharedframe.RecoverForce:
	default:
		return errors.Errorf("unknown recovery policy %q", c.Recovery)
	}
	return nil
}

func (c *Config) Geometry() frame.Geometry {
	return frame.Geometry{Width: c.Width, Height: c.Height, Channels: c.Channels}
}

func (c *Config) lockOptions(strategy string) lock.Options {
	return lock.Options{
		Strategy: lock.Strategy(strategy),
		Interval: time.Duration(c.PollInterval) * time.Millisecond,
		Timeout:  time.Duration(c.Timeout) * time.Millisecond,
	}
}

func (c *Config) ProducerLock() lock.Options { return c.lockOptions(c.ProducerWait) }

func (c *Config) ConsumerLock() lock.Options { return c.lockOptions(c.ConsumerWait) }

func (c *Config) Files() sharedframe.Files {
	return sharedframe.Files{Region: c.RegionFile, Lock: c.LockFile, Meta: c.MetaFile}
}

func (c *Config) ProducerOptions() sharedframe.ProducerOptions {
	return sharedframe.ProducerOptions{
		Geometry: c.Geometry(),
		Files:    c.Files(),
		Lock:     c.ProducerLock(),
		Recovery: sharedframe.Recovery(c.Recovery),
	}
}

func (c *Config) ConsumerOptions() sharedframe.ConsumerOptions {
	return sharedframe.ConsumerOptions{
		Geometry: c.Geometry(),
		Files:    c.Files(),
		Lock:     c.ConsumerLock(),
	}
}
