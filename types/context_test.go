package types

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestAppContext_NilSafe(t *testing.T) {
	var c *AppContext
	assert.Equal(t, DefaultVersion, c.VersionOrDefault())
	assert.NotNil(t, c.Log())
}

func TestAppContext_Values(t *testing.T) {
	logger := log.New(io.Discard)
	c := &AppContext{Version: "v1.2.3", Logger: logger}
	assert.Equal(t, "v1.2.3", c.VersionOrDefault())
	assert.Same(t, logger, c.Log())
}
