// Package aws adapts AWS services to the engine's collaborator contracts:
// SSM Parameter Store for site parameters, Route 53 for hosted zones, S3
// for content buckets, Route 53 Domains for registrar nameservers and
// Secrets Manager for registrar credentials.
//
// Errors are returned as classified engine errors. The gatherer recovers
// them; nothing here retries.
package aws
