// Package ensemble orchestrates collections of independent simulation runs.
//
// Given a member list (or a seed generator that produces one), the driver
// runs every member through the single-run invoker for a fixed step count,
// tags each member's two result tables with its 1-based member index, and
// concatenates them across the ensemble. Two execution strategies share
// identical output semantics:
//
//   - sequential: members run one at a time in index order
//   - parallel: members run over a batched worker pool; results are
//     reassembled in submission order before tagging
//
// The driver performs no recovery: the first failing member aborts the whole
// ensemble and no partial tables are returned.
package ensemble
