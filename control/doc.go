// Package control
// Author: momentics <momentics@gmail.com>
//
// Observability layer of blockpool: diagnostics snapshots, fragmentation
// and largest-free-block analysis, text reports, usage tracking, the
// metrics registry and debug probes.
//
// Everything here reads pool counters; nothing mutates allocator state.
package control
