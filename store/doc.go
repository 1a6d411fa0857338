// Package store persists conversation checkpoints.
//
// A checkpoint is the JSON encoded conversation state of one thread after one
// graph step. Sessions load the latest checkpoint of a thread to continue a
// conversation and save a new one after every step.
//
// Backends live in sub-packages:
//
//	store/memory    in-process map, for tests and one-shot runs
//	store/file      one JSON file per checkpoint under a directory
//	store/postgres  pgx connection pool
//	store/redis     go-redis, sorted set per thread
//	store/sqlite    mattn/go-sqlite3
package store
