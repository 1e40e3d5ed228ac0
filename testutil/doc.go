// Package testutil provides shared fixtures for graphrag package tests.
//
// InsuranceGraph returns a small policy/coverage/claim/premium graph that every query
// intent can be exercised against, CarBatch returns an instance batch with an entity
// type unknown to the default schema, and MockEmbedder is a deterministic stand-in for
// the external embedding service with error injection.
//
// Packages whose internal tests would import testutil while testutil imports them
// (graph) keep their own local fixtures.
package testutil
