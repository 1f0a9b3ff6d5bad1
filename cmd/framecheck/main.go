package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abihf/sharedframe/config"
	"github.com/abihf/sharedframe/lock"
	"github.com/abihf/sharedframe/protocol"
	"github.com/abihf/sharedframe/utils/pidfile"
)

var flags config.Flags

func main() {
	flags.Bind(flag.CommandLine)
	flag.Parse()

	conf, err := flags.Load(false)
	if err != nil {
		log.Fatal(err)
	}

	healthy := true
	fmt.Printf("region   %s: ", conf.RegionFile)
	if st, err := os.Stat(conf.RegionFile); err != nil {
		fmt.Println("missing")
		healthy = false
	} else {
		fmt.Printf("%d bytes (want %d)\n", st.Size(), conf.Geometry().Size())
		healthy = healthy && st.Size() == int64(conf.Geometry().Size())
	}

	state, err := lock.New(conf.LockFile, lock.Options{}).State()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("lock     %s: %v\n", conf.LockFile, state)

	meta, err := protocol.ReadMetaFile(conf.MetaFile)
	switch {
	case err == nil:
		fmt.Printf("meta     %s: session %s, %v, started %s\n", conf.MetaFile, meta.Session, meta.Geometry, meta.Started)
		fmt.Printf("producer pid %d alive=%v\n", meta.Pid, meta.Alive())
		healthy = healthy && meta.Alive() && meta.Geometry == conf.Geometry()
	case os.IsNotExist(err):
		fmt.Printf("meta     %s: missing\n", conf.MetaFile)
	default:
		fmt.Printf("meta     %s: %v\n", conf.MetaFile, err)
		healthy = false
	}

	if pid, ok := pidfile.Running(conf.PidFile); ok {
		fmt.Printf("pid file %s: %d running\n", conf.PidFile, pid)
	}

	if !healthy {
		os.Exit(1)
	}
}
