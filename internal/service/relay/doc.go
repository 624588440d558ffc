// Package relay forwards pending revolving leads to the external CRM in
// batches.
//
// Each lead moves pending -> claimed -> relayed. A claim is taken before the
// call and either committed (2xx) or released back to pending with the error
// recorded. A run holds a distributed lock, so two runs never overlap, and
// the conditional claim keeps a lead from being sent twice even if they did.
package relay
