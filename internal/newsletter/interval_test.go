package newsletter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]Interval{"": Weekly, "daily": Daily, " Weekly ": Weekly, "MONTHLY": Monthly} {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseInterval("hourly")
	assert.ErrorContains(t, err, "hourly")
}

func TestIssueDate(t *testing.T) {
	wed := time.Date(2025, 8, 20, 15, 0, 0, 0, time.UTC)
	sun := time.Date(2025, 8, 17, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "August 20, 2025", Daily.IssueDate(wed))
	assert.Equal(t, "August 18, 2025", Weekly.IssueDate(wed))
	assert.Equal(t, "August 11, 2025", Weekly.IssueDate(sun))
	assert.Equal(t, "August 2025", Monthly.IssueDate(wed))
}

func TestWithIssue(t *testing.T) {
	now := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	base := Resolve(nil, nil)

	v := base.WithIssue(Monthly, now)
	assert.Equal(t, "monthly", v["newsletter_interval"])
	assert.Equal(t, "August 2025", v["issue_date"])
	assert.Equal(t, "", base["issue_date"])

	v = base.WithIssue("", now)
	assert.Equal(t, "weekly", v["newsletter_interval"])
	assert.Equal(t, "August 18, 2025", v["issue_date"])
}
