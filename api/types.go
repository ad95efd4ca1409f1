// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations exposed through the facade's
// debug surface.

package api

import "time"

// ServiceInfo exposes descriptive build- and runtime info for external
// tools, surfaced through Control's debug probes.
type ServiceInfo struct {
	Name      string
	Version   string
	Build     string
	StartedAt time.Time
}
