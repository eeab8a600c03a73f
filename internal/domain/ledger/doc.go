// Package ledger contains the per-account financial records the sync writes
// and the comparator reads: orders, per-line fee records and daily summaries.
//
// Every record is scoped to one seller account and written with upsert
// semantics keyed by its natural identity, so repeated writes converge.
package ledger
