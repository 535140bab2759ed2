// Package domain defines the core business entities for the harvester.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SearchRequest: a keyword, a result limit and the page being fetched
//   - HarvestResult: the fragments one source produced for a keyword
//   - AggregateResult: the merged results of every configured source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
