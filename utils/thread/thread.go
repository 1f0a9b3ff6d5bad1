// Package thread pins the calling goroutine to one CPU core.
package thread

/*
   #define _GNU_SOURCE
   #include <sched.h>
   #include <pthread.h>

   int set_cpu_affinity(int core_id) {
       cpu_set_t cpuset;
       CPU_ZERO(&cpuset);
       CPU_SET(core_id, &cpuset);
       return pthread_setaffinity_np(pthread_self(), sizeof(cpu_set_t), &cpuset);
   }
*/
import "C"

import (
	"runtime"

	"github.com/pkg/errors"
)

// SetCPUAffinity restricts the current OS thread to coreID.
func SetCPUAffinity(coreID int) error {
	if rc := C.set_cpu_affinity(C.int(coreID)); rc != 0 {
		return errors.Errorf("pthread_setaffinity_np(%d) failed with %d", coreID, int(rc))
	}
	return nil
}

// Pin locks the calling goroutine to its OS thread and restricts that thread to
// coreID, so a spinning wait burns one known core. Call Unpin from the same goroutine.
func Pin(coreID int) error {
	runtime.LockOSThread()
	if err := SetCPUAffinity(coreID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

func Unpin() {
	runtime.UnlockOSThread()
}
