package football

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekOf(t *testing.T) {
	// Friday 16 Aug 2024 -> Monday 12 Aug
	got := WeekOf(time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), got)

	// Sunday belongs to the week that started the Monday before
	got = WeekOf(time.Date(2024, 8, 18, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), got)

	// Monday is its own start
	got = WeekOf(time.Date(2024, 8, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 8, 19, 0, 0, 0, 0, time.UTC), got)
}

func TestFilterWeek(t *testing.T) {
	fs := []Fixture{
		{ID: 1, Date: time.Date(2024, 8, 11, 23, 0, 0, 0, time.UTC)},
		{ID: 2, Date: time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Date: time.Date(2024, 8, 18, 23, 59, 0, 0, time.UTC)},
		{ID: 4, Date: time.Date(2024, 8, 19, 0, 0, 0, 0, time.UTC)},
	}
	got := FilterWeek(fs, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC))
	ids := make([]int64, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []int64{2, 3}, ids)

	assert.Empty(t, FilterWeek(nil, time.Now()))
}
