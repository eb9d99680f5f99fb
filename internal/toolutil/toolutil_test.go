package toolutil

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

func TestParseSources(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []tracks.Source
	}{
		{"empty", nil, nil},
		{"all", []string{"yt", "all"}, nil},
		{"aliases", []string{"YouTube", " sc "}, []tracks.Source{tracks.YouTube, tracks.SoundCloud}},
		{"dedupe", []string{"yt", "youtube", ""}, []tracks.Source{tracks.YouTube}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSources(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSources([]string{"vimeo"})
	assert.True(t, errors.Is(err, tracks.ErrNoSourcesSelected))
}

func TestNormRetries(t *testing.T) {
	n := 0
	neg := -3
	five := 5
	huge := math.MaxInt
	assert.Equal(t, 2, NormRetries(nil, 2, 10))
	assert.Equal(t, 0, NormRetries(&n, 2, 10))
	assert.Equal(t, 0, NormRetries(&neg, 2, 10))
	assert.Equal(t, 5, NormRetries(&five, 2, 10))
	assert.Equal(t, 10, NormRetries(&huge, 2, 10))
	assert.Equal(t, 3, NormRetries(nil, 20, 3))
}
