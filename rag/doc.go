// Package rag holds the document model shared by the ingestion side of
// insightgraph and the retrieval worker.
//
// Subpackages:
//
//   - docstore: canonical file names, byte-level deduplication and the raw copies
//   - splitter: fixed-window chunking with overlap
//   - loader: turns stored files into text (plain text, HTML)
//   - store: VectorStore implementations (pgvector through langchaingo, in-memory)
//   - overview: the rolling corpus summary
//   - ingest: the pipeline tying the above together
//
// A chunk placed in the index is a Document whose metadata carries the canonical
// name of its source file under MetadataSource, plus MetadataChunkIndex and
// MetadataChunkTotal.
package rag
