// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by blockpool components: a worker executor
// with optional CPU pinning, used by the benchmark harness, and a padded
// single-producer/single-consumer ring buffer, used by the event bus.
package concurrency
