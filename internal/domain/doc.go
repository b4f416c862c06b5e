// Package domain holds the core model types, store and client contracts, and
// sentinel errors shared across the feed engine. It has no dependencies on
// adapters so every other internal package can import it freely.
package domain
