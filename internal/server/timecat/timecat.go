// Package timecat infers a due time from a note's transcription and sorts the
// note into a coarse time bucket (today, this week, future, inbox).
//
// Everything here is a pure function of its arguments: the reference instant
// is always passed in by the caller and the package never reads the clock.
package timecat

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Category is the time bucket a note belongs to.
type Category string

const (
	Today    Category = "today"
	ThisWeek Category = "thisWeek"
	Future   Category = "future"
	Inbox    Category = "inbox"
)

// Categories lists every bucket in display order.
var Categories = []Category{Today, ThisWeek, Future, Inbox}

// ParseCategory validates a user supplied bucket name.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }

// Result is the extracted time together with the bucket derived from it.
// ExtractedTime is nil exactly when Category is Inbox.
type Result struct {
	ExtractedTime *time.Time
	Category      Category
}

// rule is one entry of the extraction table. match receives the lower-cased
// text, resolve the original text and the reference instant.
type rule struct {
	match   func(lower string) bool
	resolve func(text string, now time.Time) (time.Time, bool)
}

// Substring matching, not word matching: "today" also fires inside
// "todays". Stored notes were categorized this way, keep it.
func containsAny(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

func always(string) bool { return true }

func shiftDays(days int) func(string, time.Time) (time.Time, bool) {
	return func(_ string, now time.Time) (time.Time, bool) {
		return now.AddDate(0, 0, days), true
	}
}

var monthDayPattern = regexp.MustCompile(`(\d{1,2})月(\d{1,2})[日号]`)

// monthDay resolves "3月5日" / "3月5号" to the start of that day in now's year,
// rolling over to next year when the date already passed. Unlike the relative
// rules the time of day is zeroed.
func monthDay(text string, now time.Time) (time.Time, bool) {
	for _, m := range monthDayPattern.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		date := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
		if date.Before(now) {
			date = date.AddDate(1, 0, 0)
		}
		return date, true
	}
	return time.Time{}, false
}

// rules are evaluated in order, the first matching rule wins even when the
// text mentions several expressions.
var rules = []rule{
	{match: containsAny("明天", "tomorrow"), resolve: shiftDays(1)},
	{match: containsAny("后天", "day after tomorrow"), resolve: shiftDays(2)},
	{match: containsAny("下周", "next week"), resolve: shiftDays(7)},
	{match: containsAny("今天", "today", "今晚", "tonight"), resolve: shiftDays(0)},
	{match: always, resolve: monthDay},
}

// Extract returns the time referred to by text relative to now, or nil when
// no known expression is found.
func Extract(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if !r.match(lower) {
			continue
		}
		t, ok := r.resolve(text, now)
		if !ok {
			continue
		}
		return &t
	}
	return nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// endOfWeek is Sunday 23:59:59.999 of the Monday-based week containing t.
func endOfWeek(t time.Time) time.Time {
	daysToSunday := (7 - int(t.Weekday())) % 7
	return endOfDay(t).AddDate(0, 0, daysToSunday)
}

// Categorize maps an extracted time to its bucket relative to now. Past
// times are reported as Today.
func Categorize(extracted *time.Time, now time.Time) Category {
	if extracted == nil {
		return Inbox
	}
	if !extracted.After(endOfDay(now)) {
		return Today
	}
	if !extracted.After(endOfWeek(now)) {
		return ThisWeek
	}
	return Future
}

// ExtractTimeAndCategory runs Extract and Categorize against the same
// reference instant so the pair is always consistent.
func ExtractTimeAndCategory(text string, now time.Time) Result {
	extracted := Extract(text, now)
	return Result{ExtractedTime: extracted, Category: Categorize(extracted, now)}
}
