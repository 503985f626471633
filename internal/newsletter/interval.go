package newsletter

import (
	"fmt"
	"strings"
	"time"
)

// Interval is how often the newsletter goes out. It decides how an issue is dated.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// ParseInterval accepts daily, weekly or monthly in any case. Empty means weekly.
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(strings.ToLower(strings.TrimSpace(s))); i {
	case "":
		return Weekly, nil
	case Daily, Weekly, Monthly:
		return i, nil
	default:
		return "", fmt.Errorf("invalid newsletter interval %q: want daily, weekly or monthly", s)
	}
}

// IssueDate labels an issue sent at now. Weekly issues carry the date of that
// week's Monday and monthly issues only the month.
func (i Interval) IssueDate(now time.Time) string {
	switch i {
	case Monthly:
		return now.Format("January 2006")
	case Weekly:
		offset := (int(now.Weekday()) + 6) % 7
		return now.AddDate(0, 0, -offset).Format(PublishDateLayout)
	default:
		return now.Format(PublishDateLayout)
	}
}

// WithIssue returns a copy of v dated for an issue of interval i sent at now.
func (v Vars) WithIssue(i Interval, now time.Time) Vars {
	if i == "" {
		i = Weekly
	}
	out := v.clone()
	out["newsletter_interval"] = string(i)
	out["issue_date"] = i.IssueDate(now)
	return out
}
