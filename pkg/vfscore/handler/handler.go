// Package handler implements the Directory Handler: the component that
// resolves paths to directories, enforces the three-zone access policy,
// and drives add/delete/rename through the store adapter, caching open
// directories in memory between flushes.
package handler

import (
	"crypto/ed25519"
	"strings"
	"sync"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/logger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/bufpool"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/selfencrypt"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/filehandle"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

// Event is published on the Handler's event channel for every
// create/rename/remove, and for every file content commit, when one is
// configured.
type Event struct {
	Kind EventKind
	Path string
}

// EventKind tags the mutation an Event reports.
type EventKind int

const (
	EventCreated EventKind = iota
	EventRenamed
	EventRemoved
	EventModified
)

// cacheEntry pins a Directory in memory for as long as it has open file
// handles or pending mutations referencing it.
type cacheEntry struct {
	mu        sync.Mutex
	directory *vfscore.Directory
	pinCount  int
}

// Handler is the Directory Handler. It owns no goroutines of its own;
// callers drive it synchronously, and it is safe for concurrent use
// across independent paths thanks to its per-directory locking.
type Handler struct {
	store store.ObjectStore

	signingKey    ed25519.PrivateKey
	verifyKey     ed25519.PublicKey
	ownerKey      []byte
	groupKey      []byte
	worldWritable bool

	rootParentID identity.Identity
	ownerRootID  identity.Identity
	groupRootID  identity.Identity
	worldRootID  identity.Identity

	cacheMu sync.Mutex
	cache   map[identity.Identity]*cacheEntry

	encryptor selfencrypt.Encryptor
	bufPool   *bufpool.Pool

	filesMu   sync.Mutex
	openFiles map[string]*filehandle.File

	events chan<- Event
}

// Config carries the construction-time parameters for a Handler.
type Config struct {
	Store store.ObjectStore

	// SigningKey signs encrypted Owner/Group directory records on
	// write; the corresponding public key (SigningKey.Public()) is
	// used to verify them on read. Required for the Owner and Group
	// zones; World never touches either.
	SigningKey ed25519.PrivateKey

	// OwnerKey and GroupKey are the 32-byte symmetric keys used to
	// encrypt Owner- and Group-zone directory records respectively.
	// Deliberately distinct from SigningKey: an ed25519 key must never
	// double as AEAD key material.
	OwnerKey []byte
	GroupKey []byte

	WorldWritable bool
	// Events, if non-nil, receives a notification for every
	// create/rename/remove. A full channel drops the event rather than
	// blocking the caller.
	Events chan<- Event

	// Encryptor drives every open File's Flush. Defaults to
	// selfencrypt.NewConvergent() when nil.
	Encryptor selfencrypt.Encryptor
	// BufPool backs every open File's write buffer. Defaults to a
	// package-private pool when nil.
	BufPool *bufpool.Pool
}

// New constructs a Handler against an already-bootstrapped store. Use
// Bootstrap to create the initial zone layout on first run.
func New(cfg Config) *Handler {
	encryptor := cfg.Encryptor
	if encryptor == nil {
		encryptor = selfencrypt.NewConvergent()
	}
	h := &Handler{
		store:         cfg.Store,
		signingKey:    cfg.SigningKey,
		ownerKey:      cfg.OwnerKey,
		groupKey:      cfg.GroupKey,
		worldWritable: cfg.WorldWritable,
		cache:         make(map[identity.Identity]*cacheEntry),
		encryptor:     encryptor,
		bufPool:       cfg.BufPool,
		openFiles:     make(map[string]*filehandle.File),
		events:        cfg.Events,
	}
	if cfg.SigningKey != nil {
		h.verifyKey = cfg.SigningKey.Public().(ed25519.PublicKey)
	}
	return h
}

// SetWorldWritable toggles whether the World zone accepts writes.
func (h *Handler) SetWorldWritable(writable bool) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	h.worldWritable = writable
}

func (h *Handler) worldIsWritable() bool {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	return h.worldWritable
}

func (h *Handler) publish(kind EventKind, path string) {
	if h.events == nil {
		return
	}
	select {
	case h.events <- Event{Kind: kind, Path: path}:
	default:
		logger.Warn("dropped handler event: channel full", logger.Path(path))
	}
}

// storeKind maps a DirectoryKind to its store.Kind namespace.
func storeKind(k vfscore.DirectoryKind) store.Kind {
	switch k {
	case vfscore.KindOwner:
		return store.OwnerDirectory
	case vfscore.KindGroup:
		return store.GroupDirectory
	default:
		return store.WorldDirectory
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func joinPath(components []string) string {
	return "/" + strings.Join(components, "/")
}
