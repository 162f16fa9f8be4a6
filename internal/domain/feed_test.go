package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeedSummary(t *testing.T) {
	created := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)
	feed := Feed{
		ID:        "Ab3xYz9_-Q",
		Title:     "Weekly digest",
		CreatedAt: created,
	}

	s := feed.Summary()
	assert.Equal(t, "Ab3xYz9_-Q", s.ID)
	assert.Equal(t, "Weekly digest", s.Title)
	assert.Equal(t, created.Format(time.RFC1123Z), s.CreateAt)
}
