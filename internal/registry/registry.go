package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/arbitr/internal/logger"
)

// DuplicateDomainError is returned when registering a domain name that
// already exists without requesting replacement.
type DuplicateDomainError struct {
	Name string
}

func (e *DuplicateDomainError) Error() string {
	return fmt.Sprintf("domain already registered: %s (use replace to overwrite)", e.Name)
}

// Registry maps domain names to the resource-path patterns they own and
// answers ownership queries. Reads and writes are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	domains map[string]*entry
}

type entry struct {
	domain *ledger.Domain
	rules  []ownRule
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		domains: make(map[string]*entry),
	}
}

// Register adds a domain with its ownership patterns. If the name is already
// taken and replace is false, it fails with DuplicateDomainError. Patterns
// that compile to nothing (empty after trimming) are rejected.
func (r *Registry) Register(name string, patterns []string, replace bool) (*ledger.Domain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("domain name is required")
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one pattern is required for domain %s", name)
	}

	rules := make([]ownRule, 0, len(patterns))
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		rule, ok := parseOwnRule(p)
		if !ok {
			return nil, fmt.Errorf("invalid pattern %q for domain %s", p, name)
		}
		rules = append(rules, rule)
		cleaned = append(cleaned, strings.TrimSpace(p))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.domains[name]; exists && !replace {
		return nil, &DuplicateDomainError{Name: name}
	}

	d := &ledger.Domain{Name: name, Patterns: cleaned}
	r.domains[name] = &entry{domain: d, rules: rules}

	logger.Debug("Registered domain %s with %d patterns", name, len(rules))
	return d, nil
}

// OwnerOf returns the domain that owns path, or nil if no domain's patterns
// match (the path is unowned and any agent may edit it). When several
// domains match, the most specific pattern wins; ties break by domain name
// so the answer is deterministic.
func (r *Registry) OwnerOf(path string) *ledger.Domain {
	path = NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best      *ledger.Domain
		bestScore = -1
	)
	for _, name := range r.sortedNamesLocked() {
		e := r.domains[name]
		for _, rule := range e.rules {
			if !rule.match(path) {
				continue
			}
			if score := rule.specificity(); score > bestScore {
				best = e.domain
				bestScore = score
			}
		}
	}
	return best
}

// Get returns a registered domain by name, or nil.
func (r *Registry) Get(name string) *ledger.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.domains[name]; ok {
		return e.domain
	}
	return nil
}

// Domains returns all registered domains sorted by name.
func (r *Registry) Domains() []*ledger.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ledger.Domain, 0, len(r.domains))
	for _, name := range r.sortedNamesLocked() {
		out = append(out, r.domains[name].domain)
	}
	return out
}

// Load seeds the registry from replayed ledger state. Existing entries with
// the same name are overwritten; replay order already resolved duplicates.
func (r *Registry) Load(domains map[string]*ledger.Domain) {
	for _, d := range domains {
		if _, err := r.Register(d.Name, d.Patterns, true); err != nil {
			logger.Warn("Skipping unloadable domain %s: %v", d.Name, err)
		}
	}
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizePath cleans a resource path for matching and claim comparison:
// slashes are canonical, leading "./" and "/" are stripped.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimLeft(path, "/")
	return path
}
