package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmer_Confirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"yes", "yes\n", true},
		{"y", "y\n", true},
		{"uppercase yes", "YES\n", true},
		{"no", "no\n", false},
		{"empty defaults to no", "\n", false},
		{"garbage defaults to no", "maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			confirmer := NewConfirmer(strings.NewReader(tt.input), &out)

			approved, err := confirmer.Confirm("Proceed with restore?")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, approved)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestConfirmer_AutoApprove(t *testing.T) {
	confirmer := NewConfirmer(strings.NewReader(""), &bytes.Buffer{})
	confirmer.SetAutoApprove(true)

	approved, err := confirmer.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, approved)

	approved, err = confirmer.ConfirmDestructive("Drop database app", "app")
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestConfirmer_ConfirmDestructive(t *testing.T) {
	var out bytes.Buffer
	confirmer := NewConfirmer(strings.NewReader("app\n"), &out)

	approved, err := confirmer.ConfirmDestructive("Drop database app", "app")
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Contains(t, out.String(), `"app"`)
}

func TestConfirmer_ConfirmDestructiveMismatch(t *testing.T) {
	confirmer := NewConfirmer(strings.NewReader("apP\n"), &bytes.Buffer{})

	approved, err := confirmer.ConfirmDestructive("Drop database app", "app")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestConfirmer_ClosedInput(t *testing.T) {
	confirmer := NewConfirmer(strings.NewReader(""), &bytes.Buffer{})

	_, err := confirmer.Confirm("Proceed?")
	assert.Error(t, err)
}
