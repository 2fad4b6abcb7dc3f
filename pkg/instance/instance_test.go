package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "web.1", ID())
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	assert.NotEmpty(t, ID())
}
