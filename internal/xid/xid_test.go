package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndPrefixed(t *testing.T) {
	a := New("audit")
	b := New("audit")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "audit-"))
	assert.NotContains(t, strings.TrimPrefix(a, "audit-"), "-")
	assert.Len(t, New(""), 32)
}
