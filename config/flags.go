package config

import (
	"flag"
	"log/slog"
	"os"
)

// Flags holds command line overrides shared by the sharedframe tools. Zero values
// leave the configuration file's setting alone.
type Flags struct {
	File    string
	Backend string
	Device  string
	Width   int
	Height  int
	Wait    string
	Verbose bool
}

// Bind registers the flags on fs. wait names the flag that overrides this tool's
// wait strategy.
func (f *Flags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.File, "config", DefaultFile, "configuration file")
	fs.StringVar(&f.Backend, "backend", "", "capture backend: v4l2 or opencv")
	fs.StringVar(&f.Device, "device", "", "capture device")
	fs.IntVar(&f.Width, "width", 0, "frame width")
	fs.IntVar(&f.Height, "height", 0, "frame height")
	fs.StringVar(&f.Wait, "wait", "", "wait strategy: spin, poll or notify")
	fs.BoolVar(&f.Verbose, "v", false, "debug logging")
}

// Load reads the configuration file and applies the overrides. producer selects which
// side of the handshake -wait configures.
func (f *Flags) Load(producer bool) (*Config, error) {
	level := slog.LevelInfo
	if f.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	conf := Load(f.File)
	if f.Backend != "" {
		conf.Backend = f.Backend
	}
	if f.Device != "" {
		conf.Device = f.Device
	}
	if f.Width != 0 {
		conf.Width = f.Width
	}
	if f.Height != 0 {
		conf.Height = f.Height
	}
	if f.Wait != "" {
		if producer {
			conf.ProducerWait = f.Wait
		} else {
			conf.ConsumerWait = f.Wait
		}
	}
	return conf, conf.Validate()
}
