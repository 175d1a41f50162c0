// Package providers assembles the engine's collaborators for a CLI run.
//
// The aws backend reads parameters from SSM, hosted zones from Route 53,
// buckets from S3 and registrar nameservers from Route 53 Domains or
// Dynadot. The local backend reads parameters from the SQLite store and
// only touches public DNS and HTTP. Offline mode touches nothing but the
// store.
package providers
