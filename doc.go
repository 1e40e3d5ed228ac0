// Package graphrag answers natural-language questions over an in-memory property graph
// and evolves the graph's schema from observed instance data.
//
// # Architecture
//
// A question flows through the query pipeline in processor/query:
//
//	text ─▶ intent ─▶ params ─▶ builder ─▶ executor ─▶ response
//	        (regex,     (ids,     (graph     (match,     (templates,
//	        centroids)  terms)    query)     traverse)   follow-ups)
//
//   - intent classifies the text, first with regex patterns and then by cosine
//     similarity against per-intent embedding centroids (pkg/embedding).
//   - params pulls identifiers, terms and user context out of the text.
//   - builder turns intent and parameters into a types/graphquery.Spec.
//   - executor runs the Spec against a graph.Store: start nodes, filters, then path
//     extension over typed edges.
//   - response renders the result with per-intent templates and proposes follow-up
//     questions.
//
// Schema state lives in the schema package: a versioned registry of entity and
// relationship types with quality scores. processor/schema analyzes instance data,
// proposes new types and properties with a confidence, and applies those above a
// threshold.
//
// # Packages
//
//	graph              property graph store and the instance data format
//	schema             versioned schema registry, import and export
//	types/graphquery   the graph query and result model
//	processor/query    the question pipeline, history, feedback and statistics
//	processor/schema   schema analysis and evolution
//	pkg/embedding      BM25 and HTTP embedders, memoization
//	pkg/cache          generic LRU cache with metrics
//	pkg/retry          backoff for transient failures
//	config             layered configuration
//	metric             prometheus registry and HTTP endpoint
//	errors             classified errors
//	cmd/graphrag       command line tool
//
// # Error Handling
//
// Errors are classified as transient, invalid or fatal with the errors package.
// Query execution never panics on bad input: a failed execution yields a result
// with its Error set and an unsuccessful answer.
package graphrag
