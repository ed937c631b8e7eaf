package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/yamf-go/op-marker/types"
)

// Registry maps check identities to the marking metadata declared for them.
// It is built once when the marking scheme is loaded and queried by identity afterwards.
type Registry struct {
	config Config
	marks  map[types.CheckID]types.MarkMetadata
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log        log.Logger
	SchemeFile string // optional, checks can also be registered programmatically
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
		marks:  make(map[types.CheckID]types.MarkMetadata),
	}

	if cfg.SchemeFile != "" {
		if err := r.loadScheme(cfg.SchemeFile); err != nil {
			return nil, fmt.Errorf("failed to load marking scheme: %w", err)
		}
	}

	cfg.Log.Debug("Registry loaded", "len(checks)", len(r.marks))

	return r, nil
}

// loadScheme reads a marking scheme file and registers every check in it
func (r *Registry) loadScheme(path string) error {
	scheme, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for i, check := range scheme.Checks {
		if !check.HasMark() {
			r.config.Log.Warn("Check has no mark, leaving it unmarked", "check", check.ID, "path", path)
			continue
		}
		if err := r.Register(types.CheckID(check.ID), check.Metadata()); err != nil {
			return fmt.Errorf("check %d in %s: %w", i, path, err)
		}
	}
	return nil
}

// Register adds marking metadata for a check. Registering the same check twice is an error.
func (r *Registry) Register(id types.CheckID, meta types.MarkMetadata) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("invalid marking for %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.marks[id]; exists {
		return fmt.Errorf("duplicate marking for %s", id)
	}
	r.marks[id] = meta
	return nil
}

// Lookup resolves the marking metadata of a check.
// An unknown check yields ok == false and no error: the check is simply unmarked.
// An identity that does not name a check method cannot be resolved and yields an error.
func (r *Registry) Lookup(id types.CheckID) (*types.MarkMetadata, bool, error) {
	if err := id.Validate(); err != nil {
		return nil, false, fmt.Errorf("cannot resolve check definition: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.marks[id]
	if !ok {
		return nil, false, nil
	}
	return &meta, true, nil
}

// IDs returns the registered check identities in lexicographic order
func (r *Registry) IDs() []types.CheckID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.CheckID, 0, len(r.marks))
	for id := range r.marks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Available returns the sum of all registered marks
func (r *Registry) Available() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, meta := range r.marks {
		total += meta.Mark
	}
	return total
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadConfig loads a marking scheme from a file
func loadConfig(path string) (*types.SchemeConfig, error) {
	log.Debug("Reading marking scheme file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg types.SchemeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
