//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux builds treat every pin/unpin as a no-op failure; callers
// are required to treat that as non-fatal (§6, Affinity C9).

package affinity

import "errors"

func pinPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

func unpinPlatform() error {
	return errors.New("affinity: not supported on this platform")
}
