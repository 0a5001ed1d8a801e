package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullVersionDefaults(t *testing.T) {
	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "none", GetCommit())
	assert.Equal(t, "dev (commit: none)", GetFullVersion())
}
