// Package insightgraph answers questions over a private collection of data
// files.
//
// Files are ingested once: a copy is kept in local storage, an extraction model
// turns the content into an indexable text and a short summary, the text is
// chunked into a pgvector collection and the summary is appended to a
// documents overview that is shown with every answer.
//
// Queries run through a supervisor graph. The supervisor routes between three
// workers until it decides to finish:
//
//   - retriever: searches the index with a tool loop and loads the raw files
//     behind the hits
//   - analyst: answers the question from those files
//   - visualizer: writes and runs Python to chart the data
//
// Conversations are persisted per thread by a checkpoint store so later
// questions see earlier answers.
//
// # Packages
//
//   - graph: typed state graph with a step budget shared by nested graphs
//   - prebuilt: tool calling agent and structured output helpers
//   - rag: document model, splitter, loader, vector stores, document store,
//     overview cache and the ingestion pipeline
//   - agents: supervisor workflow, workers and sessions
//   - store: checkpoint stores (memory, file, postgres, redis, sqlite)
//   - sandbox: Python execution for the visualizer
//   - tool: search and python tools exposed to the agents
//   - config, log, report: configuration, logging and HTML reports
//
// The insightgraph command in cmd/insightgraph wires everything together:
//
//	insightgraph --insert-file data/claims.csv
//	insightgraph --insert-directory data/incoming --concurrency 4
//	insightgraph --query "How did claim losses evolve over the years?"
//	insightgraph --update-summary
package insightgraph
