// File: selector/fatal.go
// Author: momentics <momentics@gmail.com>
//
// Overflow is fatal by policy (§7): registering past MaxPollFds
// terminates the process rather than returning a recoverable error a
// caller might ignore.

package selector

import "os"

func fatalExit() {
	os.Exit(1)
}
