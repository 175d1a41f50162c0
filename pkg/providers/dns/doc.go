// Package dns implements the public-network collaborators of the engine:
// nameserver and ownership TXT lookups against public recursive resolvers,
// and the live HTTP connectivity probe.
package dns
