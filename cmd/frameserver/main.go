package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abihf/sharedframe"
	"github.com/abihf/sharedframe/capture"
	"github.com/abihf/sharedframe/capture/cv"
	"github.com/abihf/sharedframe/config"
	"github.com/abihf/sharedframe/utils/pidfile"
	"github.com/abihf/sharedframe/utils/thread"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
)

var flags config.Flags

func main() {
	flags.Bind(flag.CommandLine)
	flag.Parse()

	err := serve()
	if err != nil {
		log.Println(err)
	}
	fmt.Println("Finished.")
	os.Exit(sharedframe.ExitCode(err))
}

func serve() error {
	conf, err := flags.Load(true)
	if err != nil {
		return errors.Wrap(err, "Invalid configuration")
	}

	if err = pidfile.Acquire(conf.PidFile); err != nil {
		return err
	}
	defer pidfile.Release(conf.PidFile)

	fmt.Println("Initializing capture...")
	src, err := openSource(conf)
	if err != nil {
		return errors.Wrap(err, "Can not open capture device")
	}

	producer, err := sharedframe.NewProducer(src, conf.ProducerOptions())
	if err != nil {
		src.Close()
		return errors.Wrap(err, "Can not create shared region")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.Printf("Caught signal %s: shutting down.", sig)
		cancel()
	}()

	if conf.CPU >= 0 {
		if err = thread.Pin(conf.CPU); err != nil {
			log.Printf("Can not pin to cpu %d: %v", conf.CPU, err)
		} else {
			defer thread.Unpin()
		}
	}

	fmt.Printf("Initialized. Capture(%s) is active. Frame size is %d. Press CTRL+C to exit.\n",
		conf.Device, conf.Geometry().Size())
	daemon.SdNotify(false, daemon.SdNotifyReady)
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	return producer.Run(ctx, nil)
}

func openSource(conf *config.Config) (capture.Source, error) {
	if conf.Backend == config.BackendOpenCV {
		return cv.Open(conf.Device, conf.Width, conf.Height)
	}
	cam, err := capture.Open(conf.Device, conf.Width, conf.Height)
	if err != nil {
		return nil, err
	}
	return capture.NewBuffer(cam), nil
}
