package config

import (
	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
)

// Server defaults.
const (
	DefaultServerHost         = "0.0.0.0"
	DefaultServerPort         = 8080
	DefaultServerReadTimeout  = "30s"
	DefaultServerWriteTimeout = "30s"
	DefaultServerIdleTimeout  = "60s"
	DefaultServerMaxBodyBytes = "16MB"
)

// Matcher defaults.
const (
	DefaultSizeThreshold   = matchers.DefaultSizeThreshold
	DefaultSimThresholdNum = matchers.DefaultSimThresholdNum
	DefaultSimThresholdDen = matchers.DefaultSimThresholdDen
	DefaultSlicing         = string(matchers.SliceView)
	DefaultMinHeight       = matchers.DefaultMinHeight
	DefaultLazyMemoEntries = decompressed.DefaultMemoEntries
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Observability defaults.
const (
	DefaultSampleRatio = 1.0
)

// Batch defaults. Zero workers means one per CPU.
const (
	DefaultBatchWorkers = 0
)
