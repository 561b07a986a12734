// Package rerank provides cross-encoder scoring backed by hosted rerank APIs.
//
// Providers implement the retrieval.Reranker contract: on any upstream
// failure they return a SCORING_UNAVAILABLE error so the pipeline can fall
// back to fusion order instead of failing the request.
package rerank
