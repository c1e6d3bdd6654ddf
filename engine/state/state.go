package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

var (
	// ErrStaleCompile is returned by MarkCompiled and MarkFailed when the ticket's source
	// version is older than the controller's.
	ErrStaleCompile = errors.New("state: compile result is stale")
)

// SyncAction is the decision returned by RequestAutoSync.
type SyncAction int

const (
	// SyncRecompile means a new source version was issued; the caller must trigger a render.
	SyncRecompile SyncAction = iota

	// SyncReconcile means the published schema is owed to the slot pool; the caller must
	// reconcile now, without rendering.
	SyncReconcile
)

func (a SyncAction) String() string {
	if a == SyncReconcile {
		return "reconcile"
	}
	return "recompile"
}

// Phase is the coarse state of the controller.
type Phase int

const (
	// PhaseIdle: the published schema belongs to the current source and nothing is owed.
	PhaseIdle Phase = iota

	// PhaseDirty: the current source has not been published by a compile yet.
	PhaseDirty

	// PhaseAwaitingSync: the schema is published and a reconciliation is owed to the pool.
	PhaseAwaitingSync
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDirty:
		return "dirty"
	case PhaseAwaitingSync:
		return "awaiting-sync"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// VersionState is a copy of the controller's counters and flags.
type VersionState struct {
	SourceVersion uint64
	LayoutVersion uint64
	Compiled      bool
	UpdatePending bool
}

// Ticket is what a render pass observed when it started. It is handed back to MarkCompiled
// or MarkFailed so that results of superseded sources can be discarded.
type Ticket struct {
	SourceVersion uint64
	LayoutVersion uint64
	Source        string
	Compiled      bool
	UpdatePending bool
}

type controller struct {
	mu *sync.Mutex

	source        string
	sourceVersion uint64
	layoutVersion uint64
	compiled      bool
	updatePending bool

	published        *param.Discovery
	publishedVersion uint64

	failedVersion uint64
	lastErr       error
}

// Controller owns the version counters and flags shared between the edit path and the render
// path. Every method holds a single lock for the duration of a few field reads and writes only;
// no parse, compile or reconciliation runs under it.
//
// sourceVersion counts source edits and explicit recompile requests. layoutVersion counts edits
// of the discovered schema's structure (count, names, types) made from the host side.
// compiled is true when the render path has published the schema of the current sourceVersion.
// updatePending is true when that schema is owed to the slot pool.
type Controller interface {
	// SetSource stores new shader text and requests a recompile.
	//
	// Parameters:
	//   - text: the new shader source
	//
	// Returns:
	//   - uint64: the new source version
	SetSource(text string) uint64

	// Source returns the current shader text.
	Source() string

	// RequestRecompile increments sourceVersion, clears compiled and clears updatePending.
	// The caller must trigger a render afterwards.
	//
	// Returns:
	//   - uint64: the new source version
	RequestRecompile() uint64

	// RequestAutoSync handles a parameter-update request. When a reconciliation is owed and the
	// schema is already published it clears compiled, keeps sourceVersion and returns SyncReconcile.
	// Otherwise it increments sourceVersion, sets updatePending, clears compiled and returns
	// SyncRecompile.
	//
	// Returns:
	//   - SyncAction: what the caller must do next
	RequestAutoSync() SyncAction

	// MarkLayoutChanged increments layoutVersion only.
	//
	// Returns:
	//   - uint64: the new layout version
	MarkLayoutChanged() uint64

	// Ticket returns what a render pass starting now observes.
	Ticket() Ticket

	// MarkCompiled publishes the schema discovered by a successful compile of t.SourceVersion and
	// sets compiled. It rejects tickets older than the current sourceVersion with ErrStaleCompile.
	//
	// Parameters:
	//   - t: the ticket the compile started from
	//   - d: the discovered schema
	//
	// Returns:
	//   - bool: true when a reconciliation is owed, meaning params-updated must be raised
	//   - error: ErrStaleCompile when t is superseded
	MarkCompiled(t Ticket, d *param.Discovery) (bool, error)

	// MarkFailed records a failed parse or compile of t.SourceVersion. compiled stays false and
	// the published schema is kept.
	//
	// Parameters:
	//   - t: the ticket the compile started from
	//   - err: the failure
	//
	// Returns:
	//   - error: ErrStaleCompile when t is superseded
	MarkFailed(t Ticket, err error) error

	// Failed reports whether the current source version already failed to compile.
	Failed() bool

	// LastError returns the failure of the current source version, or nil.
	LastError() error

	// TakePending clears updatePending and returns the published schema when a reconciliation
	// was owed. It returns false when nothing is owed or nothing is published yet.
	TakePending() (*param.Discovery, bool)

	// Published returns the last published schema and the source version it belongs to.
	Published() (*param.Discovery, uint64)

	// State returns a copy of the counters and flags.
	State() VersionState

	// Phase returns the coarse state.
	Phase() Phase
}

var _ Controller = &controller{}

func (c *controller) SetSource(text string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.source = text
	return c.requestRecompile()
}

func (c *controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.source
}

func (c *controller) RequestRecompile() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.requestRecompile()
}

func (c *controller) requestRecompile() uint64 {
	c.sourceVersion++
	c.compiled = false
	c.updatePending = false
	return c.sourceVersion
}

func (c *controller) RequestAutoSync() SyncAction {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.updatePending && c.compiled {
		// updatePending is cleared by whoever takes the schema
		c.compiled = false
		return SyncReconcile
	}
	c.sourceVersion++
	c.updatePending = true
	c.compiled = false
	return SyncRecompile
}

func (c *controller) MarkLayoutChanged() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.layoutVersion++
	return c.layoutVersion
}

func (c *controller) Ticket() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Ticket{
		SourceVersion: c.sourceVersion,
		LayoutVersion: c.layoutVersion,
		Source:        c.source,
		Compiled:      c.compiled,
		UpdatePending: c.updatePending,
	}
}

func (c *controller) MarkCompiled(t Ticket, d *param.Discovery) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.SourceVersion != c.sourceVersion {
		return false, fmt.Errorf("%w: compiled version %d, current version %d", ErrStaleCompile, t.SourceVersion, c.sourceVersion)
	}
	c.published = d
	c.publishedVersion = t.SourceVersion
	c.compiled = true
	c.failedVersion = 0
	c.lastErr = nil
	return c.updatePending, nil
}

func (c *controller) MarkFailed(t Ticket, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.SourceVersion != c.sourceVersion {
		return fmt.Errorf("%w: failed version %d, current version %d", ErrStaleCompile, t.SourceVersion, c.sourceVersion)
	}
	c.compiled = false
	c.failedVersion = t.SourceVersion
	c.lastErr = err
	return nil
}

func (c *controller) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.failedVersion != 0 && c.failedVersion == c.sourceVersion
}

func (c *controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failedVersion != c.sourceVersion {
		return nil
	}
	return c.lastErr
}

func (c *controller) TakePending() (*param.Discovery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.updatePending || c.published == nil {
		return nil, false
	}
	c.updatePending = false
	return c.published, true
}

func (c *controller) Published() (*param.Discovery, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.published, c.publishedVersion
}

func (c *controller) State() VersionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return VersionState{
		SourceVersion: c.sourceVersion,
		LayoutVersion: c.layoutVersion,
		Compiled:      c.compiled,
		UpdatePending: c.updatePending,
	}
}

func (c *controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.published != nil && c.publishedVersion == c.sourceVersion
	switch {
	case current && c.updatePending:
		return PhaseAwaitingSync
	case c.compiled, current:
		return PhaseIdle
	default:
		return PhaseDirty
	}
}
