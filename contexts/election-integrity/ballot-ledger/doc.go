// Package ballotledger implements the tamper-evident vote ledger of the
// election-integrity context.
//
// Every accepted vote is chained to its predecessor by a keyed HMAC-SHA256
// digest, so rewriting any stored vote breaks every link after it. Appends are
// serialized through a single unit of work per store; reads (candidature
// lookup, tallies and chain audits) take no locks.
package ballotledger
