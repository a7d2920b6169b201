// Package http implements the HTTP handlers of the CPT merge service.
//
// Handlers stay thin: they decode and validate the request, call the merge
// service and render the result. Failures are handed to
// errors.ErrorHandler, which writes RFC 7807 problem documents.
//
// Routes mounted under /api/v1:
//
//	POST   /sessions                          create a session
//	GET    /sessions/{sid}                    session with its soundings
//	PATCH  /sessions/{sid}                    rename the project
//	DELETE /sessions/{sid}                    discard the session
//	POST   /sessions/{sid}/soundings          upload Excel files (multipart)
//	GET    /sessions/{sid}/soundings          editable name/elevation table
//	PUT    /sessions/{sid}/soundings          replace the table
//	PATCH  /sessions/{sid}/soundings/{id}     edit one row
//	DELETE /sessions/{sid}/soundings/{id}     remove one sounding
//	GET    /sessions/{sid}/soundings/{id}/records
//	GET    /sessions/{sid}/soundings/{id}/summary
//	GET    /sessions/{sid}/chart              figure as JSON
//	GET    /sessions/{sid}/chart.html         interactive chart
//	GET    /sessions/{sid}/export/{format}    png, pdf, html or csv download
//	GET    /sessions/{sid}/events             websocket change feed
//	GET    /variables                         x-axis settings and soil zones
//	POST   /logs                              browser log forwarding
package http
