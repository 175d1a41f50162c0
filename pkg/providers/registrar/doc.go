// Package registrar reads the nameservers a domain's registrar has on
// record. Route 53 Domains and Dynadot are supported.
package registrar
