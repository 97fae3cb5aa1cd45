//go:build unix

package dashboard

import (
	"os"

	"golang.org/x/sys/unix"
)

func sendInterrupt() {
	_ = unix.Kill(os.Getpid(), unix.SIGINT)
}
