package types

import (
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// EntryType selects which kinds of entries a traversal emits
type EntryType string

const (
	TypeFiles            EntryType = "files"
	TypeDirectories      EntryType = "directories"
	TypeFilesDirectories EntryType = "files_directories"
	TypeAll              EntryType = "all"
)

// AllEntryTypes lists the accepted canonical values
var AllEntryTypes = []EntryType{TypeDirectories, TypeAll, TypeFilesDirectories, TypeFiles}

// ParseEntryType maps a user supplied name onto an EntryType. The empty
// string selects files. "both", "files_and_directories" and "everything"
// are accepted as aliases.
func ParseEntryType(s string) (EntryType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "files", "file":
		return TypeFiles, true
	case "directories", "dirs":
		return TypeDirectories, true
	case "files_directories", "files_and_directories", "both":
		return TypeFilesDirectories, true
	case "all", "everything":
		return TypeAll, true
	default:
		return "", false
	}
}

// WantsFiles reports whether non-directory entries are emitted
func (t EntryType) WantsFiles() bool {
	return t == TypeFiles || t == TypeFilesDirectories || t == TypeAll
}

// WantsDirectories reports whether directory entries are emitted
func (t EntryType) WantsDirectories() bool {
	return t == TypeDirectories || t == TypeFilesDirectories || t == TypeAll
}

// WantsEverything reports whether special files are emitted as files
func (t EntryType) WantsEverything() bool {
	return t == TypeAll
}

// Entry is one filesystem object found during a traversal.
// Stats is only populated when the traversal runs with AlwaysStat.
// Kind is what the entry resolved to, so a symlink to a directory has a
// symlink Type and KindDirectory.
type Entry struct {
	Path     string      `json:"path" yaml:"path"`
	FullPath string      `json:"full_path" yaml:"full_path"`
	Basename string      `json:"basename" yaml:"basename"`
	Depth    int         `json:"depth" yaml:"depth"`
	Type     fs.FileMode `json:"-" yaml:"-"`
	Kind     Kind        `json:"-" yaml:"-"`
	Stats    fs.FileInfo `json:"-" yaml:"-"`
}

// Mode returns the most precise mode known for the entry
func (e *Entry) Mode() fs.FileMode {
	if e.Stats != nil {
		return e.Stats.Mode()
	}
	return e.Type
}

func (e *Entry) IsDir() bool     { return e.Mode().IsDir() }
func (e *Entry) IsRegular() bool { return e.Mode().IsRegular() }

// IsSymlink reports whether the entry is a link, even when its stats were
// taken by following it
func (e *Entry) IsSymlink() bool {
	return e.Type&fs.ModeSymlink != 0 || e.Mode()&fs.ModeSymlink != 0
}

// Size returns the stat size, or -1 without stats
func (e *Entry) Size() int64 {
	if e.Stats == nil {
		return -1
	}
	return e.Stats.Size()
}

// ModTime returns the stat modification time, zero without stats
func (e *Entry) ModTime() time.Time {
	if e.Stats == nil {
		return time.Time{}
	}
	return e.Stats.ModTime()
}

// Kind is the resolved classification of an entry
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindDirectory
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// State is the traversal engine's lifecycle state
type State int

const (
	StateIdle State = iota
	StateExpanding
	StateDraining
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpanding:
		return "expanding"
	case StateDraining:
		return "draining"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventType identifies what an Event carries
type EventType string

const (
	EventData  EventType = "data"
	EventWarn  EventType = "warn"
	EventError EventType = "error"
	EventEnd   EventType = "end"
)

// Event is one signal of the event-channel consumer API
type Event struct {
	Type  EventType
	Entry Entry
	Err   error
}
