package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abihf/sharedframe"
	"github.com/abihf/sharedframe/capture/cv"
	"github.com/abihf/sharedframe/config"
	"github.com/abihf/sharedframe/frame"
	"github.com/pkg/errors"
)

var (
	flags  config.Flags
	show   = flag.Bool("show", true, "display frames, press q in the window to exit")
	window = flag.String("window", "Shared Frame (press q to exit)", "window title")
)

func main() {
	flags.Bind(flag.CommandLine)
	flag.Parse()

	conf, err := flags.Load(false)
	if err != nil {
		log.Fatal(err)
	}

	consumer, err := sharedframe.Attach(conf.ConsumerOptions())
	if errors.Is(err, sharedframe.ErrRegionNotFound) {
		fmt.Fprintf(os.Stderr, "Error: The file %s does not exist. Please ensure the server is running.\n", conf.RegionFile)
		os.Exit(sharedframe.ExitRegionNotFound)
	}
	if err != nil {
		log.Println(err)
		os.Exit(sharedframe.ExitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := rateLogger()
	if *show {
		win := cv.NewWindow(*window)
		defer win.Close()
		handler = cv.Render(win, handler)
	}

	fmt.Println("Frame client started. Press CTRL+C to exit.")
	err = consumer.Run(ctx, handler)
	if ctx.Err() != nil {
		fmt.Println("Termination requested by user.")
	}
	fmt.Println("Finished.")
	if err != nil {
		log.Println(err)
		os.Exit(sharedframe.ExitCode(err))
	}
}

// rateLogger logs the frame rate every few seconds.
func rateLogger() sharedframe.Handler {
	start := time.Now()
	frames := 0
	return func(*frame.Frame) (bool, error) {
		frames++
		if elapsed := time.Since(start); elapsed >= 5*time.Second {
			slog.Info("Receiving frames", "fps", fmt.Sprintf("%.1f", float64(frames)/elapsed.Seconds()))
			start, frames = time.Now(), 0
		}
		return true, nil
	}
}
