package graph

import "errors"

// Sentinel errors for the property graph store.
// Callers wrap these with a class from the errors package.
var (
	// ErrNodeNotFound indicates the requested node does not exist
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNode indicates a node record without an id
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge indicates an edge record missing source, target or type
	ErrInvalidEdge = errors.New("invalid edge")
)
