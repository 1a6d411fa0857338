package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyIndexed matches the error returned for files already in the store.
	ErrAlreadyIndexed = errors.New("already indexed")

	// ErrNotRegularFile is reported by IngestDirectory for entries it skips,
	// such as subdirectories.
	ErrNotRegularFile = errors.New("not a regular file")
)

type alreadyIndexedError struct {
	path string
}

func (e *alreadyIndexedError) Error() string {
	return fmt.Sprintf("file insert error: %s was already indexed", e.path)
}

func (e *alreadyIndexedError) Is(target error) bool {
	return target == ErrAlreadyIndexed
}

// Stage names the pipeline step an IngestError comes from.
type Stage string

const (
	StageLoad  Stage = "loading"
	StageParse Stage = "parsing"
	StageIndex Stage = "indexing"
)

// IngestError reports a failure after the file was admitted to the store.
type IngestError struct {
	Stage Stage
	// Name is the canonical name of the stored file.
	Name string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("failed %s %s: %v", e.Stage, e.Name, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
