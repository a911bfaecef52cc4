package vm

import (
	"time"
)

// ---------------------------------------------------------------------------
// Date and time values
// ---------------------------------------------------------------------------

// LocalDate is a calendar date without a time zone, held at UTC midnight.
type LocalDate struct {
	refHeader
	t time.Time
}

// LocalTime is a time of day in nanoseconds since midnight.
type LocalTime struct {
	refHeader
	nanos int64
}

// LocalDateTime is a wall-clock date and time without a zone, held in UTC.
type LocalDateTime struct {
	refHeader
	t time.Time
}

// Zone is a named time zone.
type Zone struct {
	refHeader
	loc *time.Location
}

// ZonedDate is a date and time in a specific zone.
type ZonedDate struct {
	refHeader
	t time.Time
}

// Instant is a point on the UTC timeline.
type Instant struct {
	refHeader
	t time.Time
}

// Duration is an exact amount of time.
type Duration struct {
	refHeader
	d time.Duration
}

// Period is a calendar amount of years, months and days.
type Period struct {
	refHeader
	years, months, days int
}

func (*LocalDate) releaseChildren()     {}
func (*LocalTime) releaseChildren()     {}
func (*LocalDateTime) releaseChildren() {}
func (*Zone) releaseChildren()          {}
func (*ZonedDate) releaseChildren()     {}
func (*Instant) releaseChildren()       {}
func (*Duration) releaseChildren()      {}
func (*Period) releaseChildren()        {}

const nanosPerDay = int64(24 * time.Hour)

func (vm *VM) newLocalDate(t time.Time) Value {
	y, m, d := t.Date()
	return vm.alloc(KindLocalDate, &LocalDate{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)})
}

func (vm *VM) newLocalTime(nanos int64) Value {
	nanos %= nanosPerDay
	if nanos < 0 {
		nanos += nanosPerDay
	}
	return vm.alloc(KindLocalTime, &LocalTime{nanos: nanos})
}

func (vm *VM) newLocalDateTime(t time.Time) Value {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return vm.alloc(KindLocalDateTime, &LocalDateTime{t: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)})
}

func (vm *VM) newZone(loc *time.Location) Value {
	return vm.alloc(KindZone, &Zone{loc: loc})
}

func (vm *VM) newZonedDate(t time.Time) Value {
	return vm.alloc(KindDate, &ZonedDate{t: t})
}

func (vm *VM) newInstant(t time.Time) Value {
	return vm.alloc(KindInstant, &Instant{t: t.UTC()})
}

func (vm *VM) newDuration(d time.Duration) Value {
	return vm.alloc(KindDuration, &Duration{d: d})
}

func (vm *VM) newPeriod(years, months, days int) Value {
	return vm.alloc(KindPeriod, &Period{years: years, months: months, days: days})
}

// clockOf splits nanoseconds since midnight.
func clockOf(nanos int64) (hour, minute, second, nano int) {
	hour = int(nanos / int64(time.Hour))
	minute = int(nanos / int64(time.Minute) % 60)
	second = int(nanos / int64(time.Second) % 60)
	nano = int(nanos % int64(time.Second))
	return
}

// localTimeOf returns the time-of-day part of t.
func localTimeOf(t time.Time) int64 {
	h, m, s := t.Clock()
	return int64(h)*int64(time.Hour) + int64(m)*int64(time.Minute) +
		int64(s)*int64(time.Second) + int64(t.Nanosecond())
}
