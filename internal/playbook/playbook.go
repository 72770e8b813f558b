// Package playbook loads the static sector reference tables used to seed
// generation context. The pack is validated once at startup so a missing
// category fails fast instead of per-request.
package playbook

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

// Store is an immutable lookup table of sector playbooks keyed by category.
type Store struct {
	byCategory map[string]domain.Playbook
}

type packFile struct {
	Playbooks []domain.Playbook `yaml:"playbooks"`
}

// Load reads the YAML pack at path and verifies every category in required
// has an entry.
func Load(path string, required []string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook pack: %w", err)
	}

	return Parse(raw, required)
}

// Parse builds a Store from raw YAML. Split from Load for tests.
func Parse(raw []byte, required []string) (*Store, error) {
	var pack packFile
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("parse playbook pack: %w", err)
	}

	byCategory := make(map[string]domain.Playbook, len(pack.Playbooks))

	for _, pb := range pack.Playbooks {
		if pb.Category == "" {
			return nil, fmt.Errorf("playbook entry without category")
		}

		if _, dup := byCategory[pb.Category]; dup {
			return nil, fmt.Errorf("duplicate playbook category %q", pb.Category)
		}

		byCategory[pb.Category] = pb
	}

	for _, cat := range required {
		if _, ok := byCategory[cat]; !ok {
			return nil, fmt.Errorf("%w: %q", coreerrors.ErrUnknownCategory, cat)
		}
	}

	return &Store{byCategory: byCategory}, nil
}

// Get returns the playbook for a category.
func (s *Store) Get(category string) (domain.Playbook, bool) {
	pb, ok := s.byCategory[category]
	return pb, ok
}

// Categories returns the known categories, sorted.
func (s *Store) Categories() []string {
	out := make([]string, 0, len(s.byCategory))
	for cat := range s.byCategory {
		out = append(out, cat)
	}

	sort.Strings(out)

	return out
}
