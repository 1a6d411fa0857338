// Package tool provides the langchaingo tools.Tool implementations used by the
// insightgraph workers.
//
//   - Search wraps a rag.VectorStore and records which stored documents its
//     results came from.
//   - Python runs code through a sandbox.Executor and records the files it
//     produced.
//
// Both are stateful per run: create a fresh instance for every worker invocation.
package tool
