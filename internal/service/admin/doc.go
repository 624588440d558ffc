// Package admin backs the back-office API: lead listing and filtering,
// pipeline stage updates, per-funnel stats and the public report lookup.
//
// Like the other service packages it depends only on the Repository
// interface in repository.go and never imports net/http or database/sql.
package admin
