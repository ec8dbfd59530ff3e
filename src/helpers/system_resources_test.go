package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendedLimit(t *testing.T) {
	assert.Equal(t, 512, recommendedLimit(0))
	assert.Equal(t, 256, recommendedLimit(256))
	assert.Equal(t, 512, recommendedLimit(600))
	assert.Equal(t, 12288, recommendedLimit(16384))
}

func TestTotalMemoryMB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	content := "MemFree:         1024 kB\nMemTotal:       16777216 kB\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	assert.Equal(t, 16384, totalMemoryMB(path))
	assert.Equal(t, 0, totalMemoryMB(filepath.Join(t.TempDir(), "missing")))
}

func TestResolveMemoryLimitMB(t *testing.T) {
	assert.Equal(t, 300, ResolveMemoryLimitMB(300))
	assert.Equal(t, 0, ResolveMemoryLimitMB(-1))
	assert.Positive(t, ResolveMemoryLimitMB(0))
}
