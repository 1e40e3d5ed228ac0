// Package retry provides exponential backoff for transient failures.
//
// The graphrag engine only retries calls to external collaborators, which in practice
// means the embedding service behind the intent classifier. Everything else in the
// engine is in-memory and either succeeds or fails deterministically.
//
// Basic use:
//
//	vecs, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() ([][]float32, error) {
//	    return client.Embed(ctx, texts)
//	})
//
// Wrap an error with NonRetryable to stop the loop on the first attempt, for example
// when the service rejects the request as malformed.
package retry
