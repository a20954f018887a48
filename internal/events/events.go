// Package events is the session's typed publish/subscribe backbone.
//
// A Bus carries four topics. Each topic drains its own queue with its own
// workers and delivers every event to every subscriber in registration order.
// There is no ordering between topics.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind is the kind of file-system change.
type ChangeKind int

const (
	Create ChangeKind = iota + 1
	Modify
	Delete
)

func (k ChangeKind) String() string {
	switch k {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent reports a change to one watched file.
type FileEvent struct {
	ID   uuid.UUID
	Path string
	Kind ChangeKind
	At   time.Time
}

// NewFileEvent creates a file event stamped now.
func NewFileEvent(path string, kind ChangeKind) FileEvent {
	return FileEvent{ID: uuid.New(), Path: path, Kind: kind, At: time.Now()}
}

// ParseRequest asks for path to be loaded into the parse cache.
type ParseRequest struct {
	ID    uuid.UUID
	Path  string
	Cause uuid.UUID // event that triggered the request, if any
}

// NewParseRequest creates a parse request.
func NewParseRequest(path string, cause uuid.UUID) ParseRequest {
	return ParseRequest{ID: uuid.New(), Path: path, Cause: cause}
}

// CompileRequest asks for a compilation. An empty Paths compiles the whole
// project.
type CompileRequest struct {
	ID    uuid.UUID
	Paths []string
}

// NewCompileRequest creates a compile request.
func NewCompileRequest(paths ...string) CompileRequest {
	return CompileRequest{ID: uuid.New(), Paths: paths}
}

// Project reports whether the request covers the whole project.
func (r CompileRequest) Project() bool {
	return len(r.Paths) == 0
}

// RebuildRequest asks for the class index and the persisted project model
// to be refreshed.
type RebuildRequest struct {
	ID     uuid.UUID
	Reason string
	Cause  uuid.UUID
}

// NewRebuildRequest creates a rebuild request.
func NewRebuildRequest(reason string, cause uuid.UUID) RebuildRequest {
	return RebuildRequest{ID: uuid.New(), Reason: reason, Cause: cause}
}
