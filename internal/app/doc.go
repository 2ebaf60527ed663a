// Package app is the composition root and action layer for easel.
//
// # Overview
//
// Run wires configuration, logging, the two service clients, the job store,
// the polling scheduler and the UI together. Session is the object the UI
// drives: every user action goes through it.
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Config file, .env, EASEL_API_KEY
//	       ├─────> logging.New()        JSON log file
//	       ├─────> transport.NewClient  Generation and collection services
//	       ├─────> poller.New()         One polling lifecycle per operation
//	       ├─────> NewSession()         Actions over store + services
//	       ├─────> StartKeepWarm()      Periodic backend health ping
//	       └─────> ui.Run()             Start TUI (blocks)
//
// # Session
//
// Generate, Upscale and Vary create local state first, submit the request,
// then hand the returned hash to the scheduler. Status snapshots flow back
// into the store through a Sink bound to the job (or to the modification
// entry). Lifecycles belong to the session context, so a request's own
// context ending never stops polling.
//
// Save, Unsave, DeleteSaved and UpdateNotes call the collection service
// first and only touch the store once it confirms. A 404 on delete counts
// as confirmation.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid or failing validation
//   - Log file cannot be opened
//   - Service base URLs that do not parse
//
// Recoverable errors (shown in the UI, logged):
//   - Submission rejected or unreachable: the job is marked error
//   - Status poll failure: the lifecycle ends and its target is marked failed
//   - Collection failures: the mirror keeps its last good list
//   - Keep-warm ping failures: retried with backoff up to 30s
package app
