package tracks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPagingValues(t *testing.T) {
	tests := []struct {
		name string
		q    QueryInfo
		want bool
	}{
		{"all present", QueryInfo{"ytPosition": "0", "ytOffset": "20", "ytToken": "tok"}, true},
		{"missing token", QueryInfo{"ytPosition": "0", "ytOffset": "20"}, false},
		{"empty token", QueryInfo{"ytPosition": "0", "ytOffset": "20", "ytToken": ""}, false},
		{"other source only", QueryInfo{"scPosition": "0", "scOffset": "20", "scToken": "x"}, false},
		{"empty", QueryInfo{}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.HasPagingValues(YouTube), tt.name)
	}
}

func TestStampPaging(t *testing.T) {
	tests := []struct {
		name    string
		prev    QueryInfo
		next    QueryInfo
		wantPos string
		wantOff string
	}{
		{
			name:    "advances from previous offset",
			prev:    QueryInfo{"scPosition": "0", "scOffset": "20"},
			next:    QueryInfo{"scOffset": "20"},
			wantPos: "20",
			wantOff: "40",
		},
		{
			name:    "missing previous offset resets",
			prev:    QueryInfo{},
			next:    QueryInfo{"scOffset": "20"},
			wantPos: "0",
			wantOff: "0",
		},
		{
			name:    "missing next offset resets",
			prev:    QueryInfo{"scOffset": "20"},
			next:    QueryInfo{},
			wantPos: "0",
			wantOff: "0",
		},
		{
			name:    "garbage offset resets",
			prev:    QueryInfo{"scOffset": "twenty"},
			next:    QueryInfo{"scOffset": "20"},
			wantPos: "0",
			wantOff: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { StampPaging(tt.prev, tt.next, SoundCloud) })
			assert.Equal(t, tt.wantPos, tt.next["scPosition"])
			assert.Equal(t, tt.wantOff, tt.next["scOffset"])
		})
	}
}

func TestMergeAndAggregate(t *testing.T) {
	merged := QueryInfo{KeyQuery: "lofi", "ytPosition": "0", "ytOffset": "5", "ytToken": "a"}
	merged.MergeFrom(QueryInfo{
		KeyQuery:         "other",
		"scPosition":     "3",
		"scOffset":       "8",
		KeyMultiOffset:   "999",
		KeyMultiPosition: "999",
	})
	merged.RecomputeAggregate()

	assert.Equal(t, "lofi", merged[KeyQuery], "first writer wins")
	assert.Equal(t, "3", merged[KeyMultiPosition])
	assert.Equal(t, "13", merged[KeyMultiOffset])

	// Recomputing is idempotent: aggregate keys are not counted.
	merged.RecomputeAggregate()
	assert.Equal(t, "13", merged[KeyMultiOffset])
}

func TestPageable(t *testing.T) {
	assert.True(t, QueryInfo{KeyQueryType: QuerySearch}.Pageable())
	assert.True(t, QueryInfo{KeyQueryType: QueryNext}.Pageable())
	assert.False(t, QueryInfo{KeyQueryType: QueryLookup}.Pageable())
	assert.False(t, QueryInfo{}.Pageable())
}

func TestTrackListNext(t *testing.T) {
	unbound := NewTrackList(nil, nil, nil)
	_, err := unbound.Next(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupportedQueryType))

	l := NewTrackList(nil, QueryInfo{KeyQuery: "x"}, func(_ context.Context, l *TrackList) (*TrackList, error) {
		return NewTrackList([]*Track{{URL: "u"}}, QueryInfo{KeyQuery: l.Query[KeyQuery]}, nil), nil
	})
	next, err := l.Next(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, next.Len())
	assert.Equal(t, "x", next.Query[KeyQuery])
}

func TestTrackEqual(t *testing.T) {
	a := &Track{Source: YouTube, Title: "A", URL: "https://www.youtube.com/watch?v=x"}
	b := &Track{Source: YouTube, Title: "B", URL: "https://www.youtube.com/watch?v=x"}
	c := &Track{Source: YouTube, Title: "A", URL: "https://www.youtube.com/watch?v=y"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
