package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventSourceCompat_EmptyCodesDefaultsToAllSyscallEvents(t *testing.T) {
	c := newEventSourceCompat(nil, nil)
	assert.True(t, c.allCodes)
	assert.True(t, c.codeOK(SourceEventCode(1)))
	assert.True(t, c.codeOK(PluginEventCode))
}

func TestEventSourceCompat_EmptyCodesWithIncompatibleSourceDefaultsToPluginEventCode(t *testing.T) {
	c := newEventSourceCompat([]string{"custom-source"}, nil)
	assert.False(t, c.allCodes)
	assert.False(t, c.codeOK(SourceEventCode(1)))
	assert.True(t, c.codeOK(PluginEventCode))
}

func TestEventSourceCompat_ExplicitCodesAreRespected(t *testing.T) {
	c := newEventSourceCompat(nil, []SourceEventCode{5, 6})
	assert.True(t, c.codeOK(5))
	assert.False(t, c.codeOK(7))
}

func TestEventSourceCompat_EmptySourceSetMeansAllSources(t *testing.T) {
	c := newEventSourceCompat(nil, nil)
	assert.True(t, c.sourceOK("anything"))
}

func TestEventSourceCompat_NonEmptySourceSetIsExclusive(t *testing.T) {
	c := newEventSourceCompat([]string{"syscall", "k8s_audit"}, nil)
	assert.True(t, c.sourceOK("syscall"))
	assert.False(t, c.sourceOK("other"))
}
