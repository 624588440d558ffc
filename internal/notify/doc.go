// Package notify fans a stored lead out to its side-effect targets: the
// submitter's report email, the marketing-automation webhook and the event
// queue.
//
// Mail goes through a Chain of Stages tried in order (authenticated SMTP,
// optional SES, local MTA) until one accepts the message. The Dispatcher
// runs every target on a background goroutine; failures are logged and
// never reach the visitor.
package notify
