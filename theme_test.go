package skim_test

import (
	"testing"

	"github.com/fwojciec/skim"
	"github.com/stretchr/testify/assert"
)

func TestDefaultTheme(t *testing.T) {
	t.Parallel()

	theme := skim.DefaultTheme()

	assert.Equal(t, 4, theme.UserMsg)
	assert.Equal(t, 7, theme.Assistant)
	assert.Equal(t, 1, theme.Error)
	assert.Equal(t, 2, theme.Success)
	assert.Equal(t, 8, theme.Muted)
	assert.Equal(t, 5, theme.Accent)
	assert.Equal(t, 6, theme.Selected)
	assert.Equal(t, 3, theme.Pending)
}
