// Package review stores customer product reviews per session.
package review

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/storage"
)

// Validation errors for submitted reviews.
var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrTextTooShort  = errors.New("review must be at least 5 characters")
)

// minTextLen is measured after tag stripping and trimming.
const minTextLen = 5

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Review is one customer review of a product.
type Review struct {
	Author string    `json:"author"`
	Rating int       `json:"rating"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
}

// Log holds reviews grouped by product id, newest first, persisted as one
// JSON map under the "reviews" key.
type Log struct {
	store storage.Store
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	byProduct map[string][]Review
}

// NewLog returns an empty review log over the given store.
func NewLog(store storage.Store, log *zap.Logger) *Log {
	return &Log{
		store:     store,
		log:       log,
		now:       time.Now,
		byProduct: make(map[string][]Review),
	}
}

// Load rehydrates the review map from storage.
func (l *Log) Load(ctx context.Context) error {
	data, err := l.store.Get(ctx, "reviews")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "load reviews")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return json.Unmarshal(data, &l.byProduct)
}

// Add validates and prepends a review for the product. The text has HTML
// tags stripped and must still reach the minimum length.
func (l *Log) Add(ctx context.Context, productID int64, author string, rating int, text string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	text = strings.TrimSpace(tagRe.ReplaceAllString(text, ""))
	if len(text) < minTextLen {
		return nil, ErrTextTooShort
	}
	if author == "" {
		author = "Anonymous"
	}

	r := Review{
		Author: author,
		Rating: rating,
		Text:   text,
		Date:   l.now().UTC(),
	}

	l.mu.Lock()
	key := strconv.FormatInt(productID, 10)
	l.byProduct[key] = append([]Review{r}, l.byProduct[key]...)
	l.persist(ctx)
	l.mu.Unlock()

	return &r, nil
}

// List returns the product's reviews, newest first.
func (l *Log) List(productID int64) []Review {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Review(nil), l.byProduct[strconv.FormatInt(productID, 10)]...)
}

// persist is best-effort; callers hold l.mu.
func (l *Log) persist(ctx context.Context) {
	data, err := json.Marshal(l.byProduct)
	if err == nil {
		err = l.store.Set(ctx, "reviews", data)
	}
	if err != nil {
		l.log.Warn("review persistence failed", zap.Error(err))
	}
}
