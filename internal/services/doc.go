// Package services implements the workspace logic of the CPT Data Merger.
// It sits between the HTTP handlers and the processing packages so that
// handlers stay thin and the rules live in one testable place.
//
// # Services
//
//	- SessionStore: private in-memory workspaces with idle expiry
//	- MergeService: uploads, the editable sounding table, chart and export
//	- HealthService: liveness and readiness reporting
//
// # Uploads
//
// Files of one upload are validated, parsed and checked in parallel with a
// bounded errgroup. Every file either becomes a sounding or an entry in
// UploadResult.Failed; order always follows the upload.
//
//	res, err := svc.Upload(ctx, sid, domain.DefaultReadOptions(), uploads)
//
// # Error Handling
//
// Services return the sentinel and typed errors of pkg/contracts/domain,
// wrapped with context. The HTTP layer maps them to problem details.
//
// # Events
//
// Every change to a session's table is published to the Broadcaster as a
// WebSocket message scoped to that session.
package services
