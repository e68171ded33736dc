package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	rcierrors "github.com/standardbeagle/rci/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Project.Root == "" {
		return rcierrors.NewConfigError("project.root", "", errors.New("project root cannot be empty"))
	}

	if err := v.validatePatterns("catalog.include", cfg.Catalog.Include); err != nil {
		return err
	}
	if len(cfg.Catalog.Include) == 0 {
		return rcierrors.NewConfigError("catalog.include", "", errors.New("at least one catalog pattern is required"))
	}
	if err := v.validatePatterns("units.include", cfg.Units.Include); err != nil {
		return err
	}
	if err := v.validatePatterns("units.exclude", cfg.Units.Exclude); err != nil {
		return err
	}

	if err := v.validatePerformanceConfig(&cfg.Performance); err != nil {
		return err
	}

	// DebounceMs: 0 means the default (set by smart defaults)
	if cfg.Watch.DebounceMs < 0 {
		return rcierrors.NewConfigError("watch.debounce_ms", strconv.Itoa(cfg.Watch.DebounceMs),
			errors.New("debounce cannot be negative"))
	}

	v.setSmartDefaults(cfg)
	return nil
}

// validatePatterns rejects malformed doublestar patterns up front so a typo
// does not silently match nothing
func (v *Validator) validatePatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return rcierrors.NewConfigError(field, p, errors.New("invalid glob pattern"))
		}
	}
	return nil
}

func (v *Validator) validatePerformanceConfig(perf *Performance) error {
	// Workers: 0 means auto-detect (set by smart defaults)
	if perf.Workers < 0 {
		return rcierrors.NewConfigError("performance.workers", strconv.Itoa(perf.Workers),
			fmt.Errorf("workers cannot be negative, got %d", perf.Workers))
	}
	if perf.CacheEntries < 0 {
		return rcierrors.NewConfigError("performance.cache_entries", strconv.Itoa(perf.CacheEntries),
			fmt.Errorf("cache entries cannot be negative, got %d", perf.CacheEntries))
	}
	return nil
}

// setSmartDefaults applies defaults based on system capabilities
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Performance.Workers == 0 {
		cfg.Performance.Workers = max(1, runtime.NumCPU())
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = DefaultDebounceMs
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
