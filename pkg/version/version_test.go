package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	version.InitBinaryVersion()

	assert.Contains(t, version.String(), "hyperdiff ")
	assert.Contains(t, version.String(), "commit: ")
	assert.NotEmpty(t, version.Version)
}
