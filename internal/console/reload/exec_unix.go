//go:build !windows

package reload

import "syscall"

var execFn = syscall.Exec
