package model

import "errors"

var (
	// ErrConfiguration covers missing or invalid settings and backends.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound is returned when persisted index artifacts are absent.
	ErrNotFound = errors.New("index not found")
	// ErrCorruptState is returned when index and metadata disagree or cannot be decoded.
	ErrCorruptState = errors.New("corrupt index state")
	// ErrUpstream covers failures of the LLM or remote embedding backend.
	ErrUpstream = errors.New("upstream error")
	// ErrIngestionIO covers unreadable sources and unwritable artifacts.
	ErrIngestionIO = errors.New("ingestion io error")
)
