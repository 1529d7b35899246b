package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, GitCommit, BuildTime = "v1.2.3", "unknown", "unknown"
	assert.Equal(t, "sitebuilder v1.2.3", String())

	GitCommit = "abc1234"
	assert.Equal(t, "sitebuilder v1.2.3 (abc1234)", String())

	BuildTime = "2026-01-02T03:04:05Z"
	assert.Equal(t, "sitebuilder v1.2.3 (abc1234, built 2026-01-02T03:04:05Z)", String())
}
