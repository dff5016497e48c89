// Package clock centralizes the wall-clock access and strftime-style
// formatting used for the access log, the tinylog header, and archive
// filenames, loading an explicit *time.Location rather than relying
// on the process timezone.
package clock

import "time"

// Clock produces timestamps in a configured location, defaulting to UTC.
type Clock struct {
	loc *time.Location
}

// New builds a Clock for the given IANA timezone name. An empty name or
// one that fails to load falls back to UTC.
func New(tz string) *Clock {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's configured location.
func (c *Clock) Now() time.Time {
	if c == nil || c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}

// AccessLogTime formats a timestamp in Apache common-log-format style:
// [02/Jan/2006:15:04:05 -0700].
func AccessLogTime(t time.Time) string {
	return "[" + t.Format("02/Jan/2006:15:04:05 -0700") + "]"
}

// ArchiveStamp formats a timestamp as YYYYMMDD-HHMMSS, used for archive
// copies and CPIO-dump filenames.
func ArchiveStamp(t time.Time) string {
	return t.Format("20060102-150405")
}

// TinylogHeader formats a tinylog "## " entry header timestamp as
// "YYYY-MM-DD HH:MM TZ".
func TinylogHeader(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}
