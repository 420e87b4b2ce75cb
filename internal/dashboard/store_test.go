package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	assertion := assert.New(t)

	tick := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	now := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	store := NewStore(2, now)
	table := Table{Columns: []string{"accountId"}, Rows: [][]string{{"111111111111"}}}

	first := store.Put("first.csv", table)
	_, err := uuid.Parse(first.Id)
	assertion.NoError(err)
	assertion.Equal(time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC), first.UploadedAt)

	got, ok := store.Get(first.Id)
	assertion.True(ok)
	assertion.Equal(first, got)
	assertion.Equal(1, got.Summary().RowCount)

	second := store.Put("second.csv", table)
	third := store.Put("third.csv", table)
	assertion.NotEqual(second.Id, third.Id)

	// #####################################
	// oldest upload is evicted
	// #####################################

	_, ok = store.Get(first.Id)
	assertion.False(ok)
	listed := store.List()
	assertion.Len(listed, 2)
	assertion.Equal("third.csv", listed[0].Name)
	assertion.Equal("second.csv", listed[1].Name)

	_, ok = store.Get("missing")
	assertion.False(ok)
}
