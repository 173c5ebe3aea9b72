package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swiftcart/storefront/internal/storage"
)

func TestAddAndList(t *testing.T) {
	ctx := context.Background()
	l := NewLog(storage.NewMemory(), zaptest.NewLogger(t))

	_, err := l.Add(ctx, 1, "Ada", 5, "Excellent build quality")
	require.NoError(t, err)
	_, err = l.Add(ctx, 1, "Grace", 3, "Decent but overpriced")
	require.NoError(t, err)
	_, err = l.Add(ctx, 2, "Ada", 4, "Works as advertised")
	require.NoError(t, err)

	reviews := l.List(1)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Grace", reviews[0].Author, "newest first")
	assert.Equal(t, "Ada", reviews[1].Author)
	assert.Len(t, l.List(2), 1)
	assert.Empty(t, l.List(99))
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	l := NewLog(storage.NewMemory(), zaptest.NewLogger(t))

	tests := []struct {
		name    string
		rating  int
		text    string
		wantErr error
	}{
		{name: "rating too low", rating: 0, text: "long enough", wantErr: ErrInvalidRating},
		{name: "rating too high", rating: 6, text: "long enough", wantErr: ErrInvalidRating},
		{name: "text too short", rating: 4, text: "meh", wantErr: ErrTextTooShort},
		{name: "only markup", rating: 4, text: "<b></b><i></i>", wantErr: ErrTextTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Add(ctx, 1, "Ada", tt.rating, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, l.List(1))
}

func TestAddStripsTags(t *testing.T) {
	l := NewLog(storage.NewMemory(), zaptest.NewLogger(t))

	r, err := l.Add(context.Background(), 1, "", 4, `<script>alert(1)</script> solid product`)
	require.NoError(t, err)
	assert.Equal(t, "alert(1) solid product", r.Text)
	assert.Equal(t, "Anonymous", r.Author)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	l := NewLog(store, zaptest.NewLogger(t))
	_, err := l.Add(ctx, 7, "Ada", 5, "Still great after a month")
	require.NoError(t, err)

	reloaded := NewLog(store, zaptest.NewLogger(t))
	require.NoError(t, reloaded.Load(ctx))
	reviews := reloaded.List(7)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Ada", reviews[0].Author)
	assert.Equal(t, 5, reviews[0].Rating)
}
