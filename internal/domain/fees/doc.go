// Package fees contains the fee classification bounded context.
// It turns flat monetary rows from settlement documents or financial events
// into per-category fee totals.
//
// Key concepts:
//   - TransactionRow: one flat monetary line from a settlement document or a flattened event
//   - Category: a key in the fixed fee taxonomy (fba-fulfillment, referral, storage, ...)
//   - Rule: an ordered (predicate, category) pair; the first matching rule wins
//   - Totals: accumulated signed totals and row counts per category
//   - Assignment: the per-row outcome used for audit traces
//
// Sign policy:
//   - Charge categories store the absolute value of negative charges
//   - Reimbursement categories keep the original sign
//   - TotalAmazonFees = sum(charges) - sum(reimbursements)
package fees
