// Package ledgerstate provides the entity-agnostic half of a ledger-addressable
// record: composite keys, a type-tagged byte envelope, a registry that maps
// type tags back to constructors, and a lifecycle descriptor for closed state
// enumerations.
//
// Concrete entity types compose these pieces rather than embedding a base type:
//
//	key, err := ledgerstate.MakeKey(issuer, itemNumber)
//	buf, err := ledgerstate.Encode("org.example.thing", record)
//	thing, err := ledgerstate.Unmarshal[*Thing](ledgerstate.DefaultRegistry, buf, "org.example.thing")
//
// Nothing in this package performs I/O. Persisting the bytes under the key is
// the caller's job.
package ledgerstate
