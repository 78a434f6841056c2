package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = origVersion, origCommit, origDate })

	assert.Equal(t, "piiguard dev (commit: none, built: unknown)", Info())

	Version, Commit, Date = "v1.0.0", "abc1234", "2026-01-02T03:04:05Z"
	assert.Equal(t, "piiguard v1.0.0 (commit: abc1234, built: 2026-01-02T03:04:05Z)", Info())
}
