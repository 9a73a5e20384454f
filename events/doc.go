// File: events/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package events is an in-process publish/subscribe bus whose event
// records live in block pool storage instead of the general heap.
package events
