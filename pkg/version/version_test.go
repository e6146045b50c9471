package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/jarfang/pkg/version"
)

func TestString(t *testing.T) {
	version.InitBinaryVersion()

	out := version.String()

	assert.True(t, strings.HasPrefix(out, "jarfang "+version.Version+" (commit: "))
	assert.Contains(t, out, "built: "+version.Date)
	assert.NotEmpty(t, version.Version)
}
