// Package matchers holds what every matcher shares: the Mapper bundling the
// two views with their mapping store, and the thresholds of a run.
package matchers

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
)

// SliceStrategy selects how the last-chance oracle gets its bounded trees.
type SliceStrategy string

// Slice strategies. Both produce the same mappings.
const (
	// SliceView projects the already materialized view.
	SliceView SliceStrategy = "slice"
	// SliceDecompress decompresses the pair again from the store.
	SliceDecompress SliceStrategy = "decompress"
)

// Defaults of a run.
const (
	DefaultSizeThreshold   = 1000
	DefaultSimThresholdNum = 1
	DefaultSimThresholdDen = 2
	DefaultMinHeight       = 1
)

// Sentinel errors returned by Config.Validate.
var (
	ErrInvalidSizeThreshold = errors.New("size threshold must not be negative")
	ErrInvalidSimThreshold  = errors.New("similarity threshold must satisfy 0 <= num <= den and den > 0")
	ErrUnknownSlicing       = errors.New("unknown slicing strategy")
	ErrInvalidMinHeight     = errors.New("min height must be at least 1")
	ErrInvalidMemoEntries   = errors.New("lazy memo entries must be positive")
)

// Config carries the thresholds of one matching run.
type Config struct {
	// SizeThreshold bounds the last-chance oracle: it runs on a pair only when
	// one side has fewer descendants than this. Zero disables the oracle.
	SizeThreshold int `json:"size_threshold" yaml:"size_threshold"`
	// SimThresholdNum / SimThresholdDen is the least Dice score a heuristic
	// candidate must reach.
	SimThresholdNum int `json:"sim_threshold_num" yaml:"sim_threshold_num"`
	SimThresholdDen int `json:"sim_threshold_den" yaml:"sim_threshold_den"`
	// Slicing selects the oracle input strategy.
	Slicing SliceStrategy `json:"slicing" yaml:"slicing"`
	// MinHeight is the smallest subtree height the top-down phase matches.
	MinHeight int `json:"min_height" yaml:"min_height"`
	// LazyMemoEntries sizes the layout cache shared by lazy views.
	LazyMemoEntries int `json:"lazy_memo_entries" yaml:"lazy_memo_entries"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		SizeThreshold:   DefaultSizeThreshold,
		SimThresholdNum: DefaultSimThresholdNum,
		SimThresholdDen: DefaultSimThresholdDen,
		Slicing:         SliceView,
		MinHeight:       DefaultMinHeight,
		LazyMemoEntries: decompressed.DefaultMemoEntries,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SizeThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSizeThreshold, c.SizeThreshold)
	}

	if c.SimThresholdDen <= 0 || c.SimThresholdNum < 0 || c.SimThresholdNum > c.SimThresholdDen {
		return fmt.Errorf("%w: %d/%d", ErrInvalidSimThreshold, c.SimThresholdNum, c.SimThresholdDen)
	}

	switch c.Slicing {
	case SliceView, SliceDecompress:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSlicing, c.Slicing)
	}

	if c.MinHeight < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMinHeight, c.MinHeight)
	}

	if c.LazyMemoEntries < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMemoEntries, c.LazyMemoEntries)
	}

	return nil
}

// SimThreshold returns the similarity threshold as a float.
func (c Config) SimThreshold() float64 {
	return float64(c.SimThresholdNum) / float64(c.SimThresholdDen)
}

// UnderSizeThreshold reports whether a pair with the given descendant counts
// is small enough for the oracle.
func (c Config) UnderSizeThreshold(srcCount, dstCount int) bool {
	return srcCount < c.SizeThreshold || dstCount < c.SizeThreshold
}
