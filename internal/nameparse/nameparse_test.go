package nameparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCanonicalForm(t *testing.T) {
	id, err := Extract("IPX-001_1080p.mp4", []string{"_1080p", "_720p"})
	require.NoError(t, err)
	assert.Equal(t, "IPX-001", id)
}

func TestExtractCaseInsensitiveStrip(t *testing.T) {
	id, err := Extract("ipx-001_1080P.mp4", []string{"_1080p"})
	require.NoError(t, err)
	assert.Equal(t, "IPX-001", id)
}

func TestExtractCollapsesSeparatorRuns(t *testing.T) {
	id, err := Extract("CAWD__456.avi", nil)
	require.NoError(t, err)
	assert.Equal(t, "CAWD-456", id)
}

func TestExtractUnrecognizedReturnsError(t *testing.T) {
	_, err := Extract("UNKNOWN-999-no-digits-suffix-xyz.mp4", nil)
	require.ErrorIs(t, err, ErrUnrecognized)

	_, err = Extract("randomfile.mp4", nil)
	require.ErrorIs(t, err, ErrUnrecognized)
}
