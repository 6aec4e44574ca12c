// Package day computes tenant-local calendar-day buckets.
//
// A bucket key is the midnight instant, in the organization's timezone, of
// the calendar day containing a timestamp. Two instants share a key iff they
// fall in the same tenant-local calendar day. The key is the dedup/grouping
// unit for attendance sessions.
package day

import "time"

// Key is a midnight-normalized instant in a tenant's timezone.
type Key struct {
	t time.Time
}

// Bucket returns the bucket key for t in loc. Pure and total: no I/O, no
// mutation of inputs. An instant exactly at midnight belongs to the day that
// starts at that midnight.
//
// time.Date normalizes through the location's rules, so days with DST
// transitions (23h or 25h long) still map every contained instant to the
// same key.
func Bucket(t time.Time, loc *time.Location) Key {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Key{t: midnight}
}

// FromMidnight rehydrates a key from a stored midnight instant. Callers
// must pass an instant previously produced by Bucket; nothing is
// renormalized here.
func FromMidnight(midnight time.Time) Key {
	return Key{t: midnight}
}

// Time returns the midnight instant the key represents.
func (k Key) Time() time.Time { return k.t }

// Equal reports whether two keys denote the same tenant-local day.
func (k Key) Equal(other Key) bool { return k.t.Equal(other.t) }

// Contains reports whether t falls inside [midnight, nextMidnight) for the
// key's day.
func (k Key) Contains(t time.Time) bool {
	return !t.Before(k.t) && t.Before(k.Next().t)
}

// Next returns the key for the following calendar day. Adding a day via
// time.Date keeps the result midnight-aligned across DST changes, where
// adding 24 hours would not.
func (k Key) Next() Key {
	loc := k.t.Location()
	return Key{t: time.Date(k.t.Year(), k.t.Month(), k.t.Day()+1, 0, 0, 0, 0, loc)}
}

// String formats the key as a calendar date, for logs and storage keys.
func (k Key) String() string { return k.t.Format("2006-01-02") }
