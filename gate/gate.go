// Package gate implements the Tool Gate Controller (spec.md §4.4, C4): the
// component that decides which toolsets are active, lazily activates them
// on first use, and evicts them by TTL and LRU pressure. It is adapted from
// the teacher's internalRegistry/ToolProvider pair (tool_registry.go,
// tool_provider.go) — same "map guarded by one mutex" shape — generalized
// from a flat tool map to toolset-scoped activation with a reverse index.
package gate

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/filter"
	"github.com/toolgate/toolgate/protocol"
)

// State is a Toolset's lifecycle stage.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateActive
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Loader produces the tool descriptors a toolset provides. It is called at
// most once per enable, even under concurrent ensureToolAvailable callers.
type Loader func() ([]protocol.Tool, error)

// Manifest is the cheap sidecar spec.md §3 describes: the names a toolset
// would produce, without paying the cost of running its Loader.
type Manifest struct {
	ID          string
	Name        string
	Description string
	Tools       []string
}

// Toolset is a named, lazily-loaded group of tool descriptors.
type Toolset struct {
	ID       string
	Loader   Loader
	Manifest *Manifest
}

// ConflictPolicy controls how ensureToolAvailable picks among multiple
// potential owners of a tool name.
type ConflictPolicy int

const (
	PreferEnabled ConflictPolicy = iota
	FirstMatch
	ErrorOnAmbiguous
)

// Config carries the Controller's static, non-mutating settings.
type Config struct {
	TTL                 time.Duration
	MaxActiveToolsets   int // 0 = unlimited
	AutoEnable          bool
	AutoEnableBlocklist []string
	AutoEnableAllowlist []string
	CaseInsensitive     bool
	ConflictPolicy      ConflictPolicy
}

type usageEntry struct {
	lastUsedAt time.Time
	pinned     bool
}

// Controller is the Tool Gate Controller. The zero value is not usable;
// construct with New.
type Controller struct {
	cfg   Config
	bus   *event.Bus
	chain *filter.Chain

	mu sync.Mutex

	toolsets map[string]*Toolset
	states   map[string]State

	active map[string]protocol.Tool // tool name -> descriptor
	owner  map[string]string        // tool name -> owning toolset id
	usage  map[string]*usageEntry   // toolset id -> usage

	reverse      map[string][]string // normalized name -> candidate toolset ids
	reverseBuilt bool

	pinnedSet map[string]struct{}

	inflight map[string]*inflightEnable
}

type inflightEnable struct {
	done chan struct{}
	err  error
}

// New constructs a Controller. chain may be nil, in which case
// availableTools returns the active map unfiltered.
func New(cfg Config, bus *event.Bus, chain *filter.Chain) *Controller {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Controller{
		cfg:       cfg,
		bus:       bus,
		chain:     chain,
		toolsets:  make(map[string]*Toolset),
		states:    make(map[string]State),
		active:    make(map[string]protocol.Tool),
		owner:     make(map[string]string),
		usage:     make(map[string]*usageEntry),
		reverse:   make(map[string][]string),
		pinnedSet: make(map[string]struct{}),
		inflight:  make(map[string]*inflightEnable),
	}
}

// Register adds a toolset definition. It does not load or activate it.
func (c *Controller) Register(ts Toolset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsets[ts.ID] = &ts
	if _, ok := c.states[ts.ID]; !ok {
		c.states[ts.ID] = StateUnloaded
	}
	c.reverseBuilt = false
}

// ListToolsets returns the ids of every registered toolset, active or not.
func (c *Controller) ListToolsets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.toolsets))
	for id := range c.toolsets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State reports a toolset's current lifecycle state.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

func (c *Controller) normalize(name string) string {
	if c.cfg.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}
