// Package intake implements the lead submission pipeline shared by every
// calculator funnel.
//
// A submission flows honeypot -> rate limit -> sanitize -> validate ->
// calculate -> insert -> notify. Validation accumulates every failing rule
// so the visitor sees all problems at once. Nothing is persisted unless the
// whole submission is valid.
//
// The service depends on the Repository, RateLimiter and Notifier
// interfaces in repository.go. It never imports net/http or database/sql.
package intake
