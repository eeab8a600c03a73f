// Package integration contains the Integration bounded context.
// This context manages the remote seller-data API, the settlement document
// source and the bookkeeping of incremental sync runs.
//
// Key concepts:
//   - SellerDataAPI: Port for paginated orders, per-order line items and financial events
//   - SettlementDocumentSource: Port for listing and downloading settlement documents
//   - SyncRunRecord: Audit record of one sync run (status, counts, error summary)
//   - SyncCursor: Per (account, sync type) progress marker for resumable sync
//   - RunGuard: Lock that allows one running sync per (account, sync type)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
