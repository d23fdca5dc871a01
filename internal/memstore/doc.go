// Package memstore holds in-memory implementations of the domain
// repositories. They back STORE_DRIVER=memory and the unit tests.
package memstore
