// Package types defines the records and typed errors shared by the tree
// engine, the decoration engine and every host implementation.
//
// Design goals:
//   - Host records (Item) are plain data; identity lives in the tree.
//   - Typed errors with stable categories (contract/not-found/state/host/...).
//   - Contract errors signal collaborator bugs and are never retried.
//
// This package has no dependencies beyond the standard library.
package types
