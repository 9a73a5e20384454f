// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts shared by the blockpool allocator and its collaborators:
// the narrow Allocate/Deallocate allocator surface, the Block value handed
// out by the pools, per-tier statistics, the diagnostics snapshot shape and
// the common error taxonomy.
package api
