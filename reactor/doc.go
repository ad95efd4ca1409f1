// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the thin, swappable poll-fd backend the
// Selector drives. The default backend wraps unix.Poll for literal
// fidelity with the source material's poll()-based design; an
// epoll-backed backend is kept alongside, unused by default, as the
// documented upgrade path for larger fan-outs.
package reactor
