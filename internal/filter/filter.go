package filter

import (
	"fmt"
	"regexp"

	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/models"
)

// Channel attributes a filter can match against
const (
	AttrGroup = "group"
	AttrName  = "name"
)

// Filter represents a compiled filter
type Filter struct {
	Attribute       string
	IncludePatterns []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
	IsRuntime       bool
}

// Manager decides which channels are kept
type Manager struct {
	filters []Filter
}

// NewManager creates a new filter manager
func NewManager() *Manager {
	return &Manager{
		filters: make([]Filter, 0),
	}
}

// LoadFromConfig loads the configured default filters
func (m *Manager) LoadFromConfig(cfg config.FilterConfig) error {
	if err := m.loadFilterSet(AttrGroup, cfg.Group.IncludePatterns, cfg.Group.ExcludePatterns, false); err != nil {
		return fmt.Errorf("failed to load group filters: %w", err)
	}
	if err := m.loadFilterSet(AttrName, cfg.Name.IncludePatterns, cfg.Name.ExcludePatterns, false); err != nil {
		return fmt.Errorf("failed to load name filters: %w", err)
	}
	return nil
}

// AddRuntime adds request-scoped patterns; for their attribute they replace
// the configured defaults
func (m *Manager) AddRuntime(attribute string, includePatterns, excludePatterns []string) error {
	if attribute != AttrGroup && attribute != AttrName {
		return apperrors.New(apperrors.CodeInvalidInput, "unknown filter attribute").WithContext("attribute", attribute)
	}
	return m.loadFilterSet(attribute, includePatterns, excludePatterns, true)
}

// Matches checks if a value passes the filters of one attribute
func (m *Manager) Matches(attribute, value string) bool {
	var runtimeFilters, configFilters []Filter
	for _, filter := range m.filters {
		if filter.Attribute != attribute {
			continue
		}
		if filter.IsRuntime {
			runtimeFilters = append(runtimeFilters, filter)
		} else {
			configFilters = append(configFilters, filter)
		}
	}

	filtersToApply := configFilters
	if len(runtimeFilters) > 0 {
		filtersToApply = runtimeFilters
	}

	for _, filter := range filtersToApply {
		// Exclusion wins over inclusion
		for _, excludePattern := range filter.ExcludePatterns {
			if excludePattern.MatchString(value) {
				return false
			}
		}

		if len(filter.IncludePatterns) > 0 {
			matched := false
			for _, includePattern := range filter.IncludePatterns {
				if includePattern.MatchString(value) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}

	return true
}

// MatchesChannel checks a channel against the group and name filters
func (m *Manager) MatchesChannel(ch models.Channel) bool {
	return m.Matches(AttrGroup, ch.Group) && m.Matches(AttrName, ch.Name)
}

// Apply returns the channels that pass every filter, in their original order
func (m *Manager) Apply(channels []models.Channel) []models.Channel {
	if m == nil || len(m.filters) == 0 {
		return channels
	}

	kept := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if m.MatchesChannel(ch) {
			kept = append(kept, ch)
		}
	}
	return kept
}

// FilterCount returns the number of loaded filters
func (m *Manager) FilterCount() int {
	if m == nil {
		return 0
	}
	return len(m.filters)
}

// ValidatePattern validates a regex pattern
func ValidatePattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid filter pattern").WithContext("pattern", pattern)
	}
	return nil
}

func (m *Manager) loadFilterSet(attribute string, includePatterns, excludePatterns []string, isRuntime bool) error {
	filter := Filter{
		Attribute: attribute,
		IsRuntime: isRuntime,
	}

	for _, pattern := range includePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid include pattern").WithContext("pattern", pattern)
		}
		filter.IncludePatterns = append(filter.IncludePatterns, compiled)
	}

	for _, pattern := range excludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid exclude pattern").WithContext("pattern", pattern)
		}
		filter.ExcludePatterns = append(filter.ExcludePatterns, compiled)
	}

	if len(filter.IncludePatterns) > 0 || len(filter.ExcludePatterns) > 0 {
		m.filters = append(m.filters, filter)
	}
	return nil
}
