package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/fragile/cmd"
	"github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		os.Exit(errors.ExitSuccess)
	}

	if errors.KindOf(err) != errors.KindTestExit {
		logging.UserError("%v", err)
	}
	if sig, ok := errors.InterruptSignal(err); ok && sig == syscall.SIGINT {
		reraise(sig)
	}
	os.Exit(errors.GetExitCode(err))
}

// reraise dies from sig so the parent shell sees an interrupted process
// rather than an exit status.
func reraise(sig syscall.Signal) {
	signal.Reset(sig)
	if err := unix.Kill(os.Getpid(), sig); err != nil {
		return
	}
	time.Sleep(time.Second)
}
