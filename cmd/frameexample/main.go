// frameexample consumes shared frames and shows them in grayscale.
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
	"github.com/abihf/sharedframe/capture/cv"
	"github.com/abihf/sharedframe/config"
	"github.com/abihf/sharedframe/frame"
)

var flags config.Flags

func main() {
	flags.Bind(flag.CommandLine)
	flag.Parse()

	conf, err := flags.Load(false)
	if err != nil {
		log.Fatal(err)
	}

	consumer, err := sharedframe.Attach(conf.ConsumerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(sharedframe.ExitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	win := cv.NewWindow("Processed Frame (press q to exit)")
	defer win.Close()

	err = consumer.Run(ctx, func(f *frame.Frame) (bool, error) {
		gray, err := cv.Gray(f)
		if err != nil {
			return false, err
		}
		quit, err := win.Show(gray)
		return !quit, err
	})
	fmt.Println("Finished.")
	if err != nil {
		log.Println(err)
		os.Exit(sharedframe.ExitCode(err))
	}
}
