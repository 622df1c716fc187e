package ref

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HasPrefixAndIsUnique(t *testing.T) {
	a := New(Transfer)
	b := New(Transfer)

	assert.True(t, strings.HasPrefix(a, "tr_"))
	assert.NotEqual(t, a, b)
}

func TestParse(t *testing.T) {
	token := New(Invite)

	got, err := Parse(token, Invite)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	_, err = Parse(token, Card)
	assert.Error(t, err)

	_, err = Parse("not a ref", Invite)
	assert.Error(t, err)
}
