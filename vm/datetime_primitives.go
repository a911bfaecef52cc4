package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gitlab.com/variadico/lctime"
)

// ---------------------------------------------------------------------------
// Date and Time Primitives
// ---------------------------------------------------------------------------

const (
	isoDate     = "2006-01-02"
	isoTime     = "15:04:05.999999999"
	isoDateTime = "2006-01-02T15:04:05.999999999"
)

func timeHash(t time.Time) int32 {
	n := uint64(t.UnixNano())
	return int32(fnvMix(fnvMix(fnvOffset, uint32(n)), uint32(n>>32)))
}

func compareTimes(a, b time.Time) Value {
	switch {
	case a.Before(b):
		return FromInt32(-1)
	case a.After(b):
		return FromInt32(1)
	}
	return FromInt32(0)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths adds months, clamping the day to the length of the target
// month instead of overflowing into the next.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)
	if dim := daysIn(y, month); d > dim {
		d = dim
	}
	h, mi, s := t.Clock()
	return time.Date(y, month, d, h, mi, s, t.Nanosecond(), t.Location())
}

func addPeriod(t time.Time, p *Period, sign int) time.Time {
	t = addMonths(t, sign*(p.years*12+p.months))
	return t.AddDate(0, 0, sign*p.days)
}

// periodBetween counts whole months first, then the remaining days.
func periodBetween(a, b time.Time) (years, months, days int) {
	total := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
	days = b.Day() - a.Day()
	switch {
	case total > 0 && days < 0:
		total--
		days = int(b.Sub(addMonths(a, total)).Hours() / 24)
	case total < 0 && days > 0:
		total++
		days -= daysIn(b.Year(), b.Month())
	}
	return total / 12, total % 12, days
}

func isoDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	sb.WriteString("PT")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&sb, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&sb, "%dM", m)
		d -= m * time.Minute
	}
	if d > 0 {
		sec, frac := d/time.Second, d%time.Second
		sb.WriteString(strconv.FormatInt(int64(sec), 10))
		if frac > 0 {
			sb.WriteString(strings.TrimRight(fmt.Sprintf(".%09d", frac), "0"))
		}
		sb.WriteByte('S')
	}
	return sb.String()
}

func periodString(p *Period) string {
	if p.years == 0 && p.months == 0 && p.days == 0 {
		return "P0D"
	}
	var sb strings.Builder
	sb.WriteByte('P')
	if p.years != 0 {
		fmt.Fprintf(&sb, "%dY", p.years)
	}
	if p.months != 0 {
		fmt.Fprintf(&sb, "%dM", p.months)
	}
	if p.days != 0 {
		fmt.Fprintf(&sb, "%dD", p.days)
	}
	return sb.String()
}

func (vm *VM) dateOf(y, m, d Value) time.Time {
	year, month, day := vm.intArg(y), vm.intArg(m), vm.intArg(d)
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		vm.ThrowAt(ErrRange, d.debug, "invalid date %04d-%02d-%02d", year, month, day)
	}
	return t
}

// clockArgs validates hour, minute, second and nanosecond arguments taken
// from args[from:], of which all but the first two are optional.
func (vm *VM) clockArgs(args []Value, from int) int64 {
	limits := []int{24, 60, 60, 1e9}
	fields := [4]int{}
	for i := range fields {
		v, ok := optArg(args, from+i)
		if !ok {
			continue
		}
		n := vm.intArg(v)
		if n < 0 || n >= limits[i] {
			vm.ThrowAt(ErrRange, v.debug, "time field %d out of range 0..%d", n, limits[i]-1)
		}
		fields[i] = n
	}
	return int64(fields[0])*int64(time.Hour) + int64(fields[1])*int64(time.Minute) +
		int64(fields[2])*int64(time.Second) + int64(fields[3])
}

func (vm *VM) zoneArg(v Value) *time.Location {
	return vm.expect(v, KindZone).AsZone().loc
}

func (vm *VM) loadZone(name Value) *time.Location {
	loc, err := time.LoadLocation(vm.stringArg(name))
	if err != nil {
		vm.ThrowAt(ErrRange, name.debug, "unknown time zone %q", name.AsString().s)
	}
	return loc
}

func (vm *VM) parseTime(layout string, s Value, what string) time.Time {
	t, err := time.Parse(layout, vm.stringArg(s))
	if err != nil {
		vm.ThrowAt(ErrRange, s.debug, "invalid %s %q", what, s.AsString().s)
	}
	return t
}

// shift applies a duration or period argument to t.
func (vm *VM) shiftTime(t time.Time, by Value, sign int, calendar bool) time.Time {
	switch by.kind {
	case KindDuration:
		return t.Add(time.Duration(sign) * by.AsDuration().d)
	case KindPeriod:
		if calendar {
			return addPeriod(t, by.AsPeriod(), sign)
		}
	}
	vm.ThrowAt(ErrType, by.debug, "cannot add %s to a time value", vm.typeName(by))
	return t
}

// timeMethods installs the accessors and formatting shared by every
// time-bearing class. get extracts the wall-clock time of a receiver.
func (vm *VM) timeMethods(c *Class, get func(Value) time.Time, fields ...string) {
	accessors := map[string]func(t time.Time) int{
		"year":      time.Time.Year,
		"month":     func(t time.Time) int { return int(t.Month()) },
		"day":       time.Time.Day,
		"hour":      time.Time.Hour,
		"minute":    time.Time.Minute,
		"second":    time.Time.Second,
		"nano":      time.Time.Nanosecond,
		"dayOfYear": time.Time.YearDay,
		"dayOfWeek": func(t time.Time) int {
			if wd := t.Weekday(); wd != time.Sunday {
				return int(wd)
			}
			return 7
		},
	}
	for _, name := range fields {
		fn := accessors[name]
		vm.method0(c, name, func(_ *VM, recv Value) Value {
			return FromInt32(int32(fn(get(recv))))
		})
	}

	vm.method1(c, "format", func(vm *VM, recv, pattern Value) Value {
		return vm.NewString(lctime.Strftime(vm.stringArg(pattern), get(recv)))
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		return FromInt32(timeHash(get(recv)))
	})
}

func (vm *VM) registerDateTimePrimitives() {
	vm.registerLocalDatePrimitives()
	vm.registerLocalTimePrimitives()
	vm.registerLocalDateTimePrimitives()
	vm.registerZonePrimitives()
	vm.registerDatePrimitives()
	vm.registerInstantPrimitives()
	vm.registerDurationPrimitives()
	vm.registerPeriodPrimitives()
}

// ---------------------------------------------------------------------------
// LocalDate
// ---------------------------------------------------------------------------

func (vm *VM) registerLocalDatePrimitives() {
	c := vm.builtins.localDate
	get := func(v Value) time.Time { return v.AsLocalDate().t }
	other := func(vm *VM, v Value) time.Time { return vm.expect(v, KindLocalDate).AsLocalDate().t }

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("LocalDate", args, 3, 3)
		return vm.newLocalDate(vm.dateOf(args[1], args[2], args[3]))
	}
	vm.static0(c, "today", func(vm *VM) Value { return vm.newLocalDate(time.Now()) })
	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		return vm.newLocalDate(vm.parseTime(isoDate, s, "date"))
	})
	vm.static1(c, "ofEpochDay", func(vm *VM, n Value) Value {
		return vm.newLocalDate(time.Unix(0, 0).UTC().AddDate(0, 0, vm.intArg(n)))
	})

	vm.timeMethods(c, get, "year", "month", "day", "dayOfWeek", "dayOfYear")

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		d := o.AsLocalDate()
		return FromBool(d != nil && d.t.Equal(get(recv)))
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return compareTimes(get(recv), other(vm, o))
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(get(recv).Format(isoDate))
	})
	vm.method0(c, "isLeapYear", func(_ *VM, recv Value) Value {
		return FromBool(daysIn(get(recv).Year(), time.February) == 29)
	})
	vm.method0(c, "lengthOfMonth", func(_ *VM, recv Value) Value {
		t := get(recv)
		return FromInt32(int32(daysIn(t.Year(), t.Month())))
	})
	vm.method0(c, "toEpochDay", func(vm *VM, recv Value) Value {
		return vm.Int64(get(recv).Unix() / 86400)
	})
	vm.method1(c, "plusDays", func(vm *VM, recv, n Value) Value {
		return vm.newLocalDate(get(recv).AddDate(0, 0, vm.intArg(n)))
	})
	vm.method1(c, "plusMonths", func(vm *VM, recv, n Value) Value {
		return vm.newLocalDate(addMonths(get(recv), vm.intArg(n)))
	})
	vm.method1(c, "plusYears", func(vm *VM, recv, n Value) Value {
		return vm.newLocalDate(addMonths(get(recv), 12*vm.intArg(n)))
	})
	vm.method1(c, "plus", func(vm *VM, recv, p Value) Value {
		return vm.newLocalDate(addPeriod(get(recv), vm.expect(p, KindPeriod).AsPeriod(), 1))
	})
	vm.method1(c, "minus", func(vm *VM, recv, p Value) Value {
		return vm.newLocalDate(addPeriod(get(recv), vm.expect(p, KindPeriod).AsPeriod(), -1))
	})
	vm.method1(c, "until", func(vm *VM, recv, o Value) Value {
		y, m, d := periodBetween(get(recv), other(vm, o))
		return vm.newPeriod(y, m, d)
	})
	vm.method1(c, "daysUntil", func(vm *VM, recv, o Value) Value {
		return vm.Int64(int64(other(vm, o).Sub(get(recv)).Hours() / 24))
	})
	vm.method1(c, "atTime", func(vm *VM, recv, lt Value) Value {
		nanos := vm.expect(lt, KindLocalTime).AsLocalTime().nanos
		return vm.newLocalDateTime(get(recv).Add(time.Duration(nanos)))
	})
}

// ---------------------------------------------------------------------------
// LocalTime
// ---------------------------------------------------------------------------

func (vm *VM) registerLocalTimePrimitives() {
	c := vm.builtins.localTime
	get := func(v Value) time.Time {
		h, m, s, n := clockOf(v.AsLocalTime().nanos)
		return time.Date(1970, 1, 1, h, m, s, n, time.UTC)
	}
	nanos := func(v Value) int64 { return v.AsLocalTime().nanos }

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("LocalTime", args, 2, 4)
		return vm.newLocalTime(vm.clockArgs(args, 1))
	}
	vm.static0(c, "now", func(vm *VM) Value { return vm.newLocalTime(localTimeOf(time.Now())) })
	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		layout := isoTime
		if strings.Count(vm.stringArg(s), ":") == 1 {
			layout = "15:04"
		}
		return vm.newLocalTime(localTimeOf(vm.parseTime(layout, s, "time")))
	})

	vm.timeMethods(c, get, "hour", "minute", "second", "nano")

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		t := o.AsLocalTime()
		return FromBool(t != nil && t.nanos == nanos(recv))
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return cmpInt64(nanos(recv), vm.expect(o, KindLocalTime).AsLocalTime().nanos)
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(get(recv).Format(isoTime))
	})
	vm.method0(c, "toSecondOfDay", func(_ *VM, recv Value) Value {
		return FromInt32(int32(nanos(recv) / int64(time.Second)))
	})
	vm.method1(c, "plus", func(vm *VM, recv, d Value) Value {
		return vm.newLocalTime(nanos(recv) + int64(vm.expect(d, KindDuration).AsDuration().d%time.Duration(nanosPerDay)))
	})
	vm.method1(c, "minus", func(vm *VM, recv, d Value) Value {
		return vm.newLocalTime(nanos(recv) - int64(vm.expect(d, KindDuration).AsDuration().d%time.Duration(nanosPerDay)))
	})
}

// ---------------------------------------------------------------------------
// LocalDateTime
// ---------------------------------------------------------------------------

func (vm *VM) registerLocalDateTimePrimitives() {
	c := vm.builtins.localDateTime
	get := func(v Value) time.Time { return v.AsLocalDateTime().t }

	// LocalDateTime(date, time) or LocalDateTime(y, m, d, h?, min?, s?, ns?).
	c.Factory = func(vm *VM, args []Value) Value {
		if len(args) == 3 && args[1].kind == KindLocalDate {
			nanos := vm.expect(args[2], KindLocalTime).AsLocalTime().nanos
			return vm.newLocalDateTime(args[1].AsLocalDate().t.Add(time.Duration(nanos)))
		}
		vm.argRange("LocalDateTime", args, 3, 7)
		day := vm.dateOf(args[1], args[2], args[3])
		return vm.newLocalDateTime(day.Add(time.Duration(vm.clockArgs(args, 4))))
	}
	vm.static0(c, "now", func(vm *VM) Value { return vm.newLocalDateTime(time.Now()) })
	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		return vm.newLocalDateTime(vm.parseTime(isoDateTime, s, "date-time"))
	})

	vm.timeMethods(c, get, "year", "month", "day", "hour", "minute", "second", "nano", "dayOfWeek", "dayOfYear")

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		t := o.AsLocalDateTime()
		return FromBool(t != nil && t.t.Equal(get(recv)))
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return compareTimes(get(recv), vm.expect(o, KindLocalDateTime).AsLocalDateTime().t)
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(get(recv).Format(isoDateTime))
	})
	vm.method0(c, "date", func(vm *VM, recv Value) Value { return vm.newLocalDate(get(recv)) })
	vm.method0(c, "time", func(vm *VM, recv Value) Value { return vm.newLocalTime(localTimeOf(get(recv))) })
	vm.method1(c, "plus", func(vm *VM, recv, by Value) Value {
		return vm.newLocalDateTime(vm.shiftTime(get(recv), by, 1, true))
	})
	vm.method1(c, "minus", func(vm *VM, recv, by Value) Value {
		return vm.newLocalDateTime(vm.shiftTime(get(recv), by, -1, true))
	})
	vm.method1(c, "atZone", func(vm *VM, recv, z Value) Value {
		t := get(recv)
		y, mo, d := t.Date()
		h, mi, s := t.Clock()
		return vm.newZonedDate(time.Date(y, mo, d, h, mi, s, t.Nanosecond(), vm.zoneArg(z)))
	})
}

// ---------------------------------------------------------------------------
// Zone
// ---------------------------------------------------------------------------

func (vm *VM) registerZonePrimitives() {
	c := vm.builtins.zone

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Zone", args, 1, 1)
		return vm.newZone(vm.loadZone(args[1]))
	}
	vm.static0(c, "utc", func(vm *VM) Value { return vm.newZone(time.UTC) })
	vm.static0(c, "local", func(vm *VM) Value { return vm.newZone(time.Local) })

	vm.method0(c, "name", func(vm *VM, recv Value) Value {
		return vm.NewString(recv.AsZone().loc.String())
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(recv.AsZone().loc.String())
	})
	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		z := o.AsZone()
		return FromBool(z != nil && z.loc.String() == recv.AsZone().loc.String())
	})
	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		return FromInt32(int32(fnv1a(fnvOffset, []byte(recv.AsZone().loc.String()))))
	})
	vm.method1(c, "offsetAt", func(vm *VM, recv, at Value) Value {
		_, offset := vm.expect(at, KindInstant).AsInstant().t.In(recv.AsZone().loc).Zone()
		return FromInt32(int32(offset))
	})
}

// ---------------------------------------------------------------------------
// Date (zoned date-time)
// ---------------------------------------------------------------------------

func (vm *VM) registerDatePrimitives() {
	c := vm.builtins.date
	get := func(v Value) time.Time { return v.AsDate().t }

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Date", args, 2, 2)
		local := vm.expect(args[1], KindLocalDateTime).AsLocalDateTime().t
		y, mo, d := local.Date()
		h, mi, s := local.Clock()
		return vm.newZonedDate(time.Date(y, mo, d, h, mi, s, local.Nanosecond(), vm.zoneArg(args[2])))
	}
	vm.AddStatic(c, "now", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Date.now", args, 0, 1)
		loc := time.Local
		if z, ok := optArg(args, 1); ok {
			loc = vm.zoneArg(z)
		}
		return vm.newZonedDate(time.Now().In(loc))
	})
	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		return vm.newZonedDate(vm.parseTime(time.RFC3339Nano, s, "date"))
	})

	vm.timeMethods(c, get, "year", "month", "day", "hour", "minute", "second", "nano", "dayOfWeek", "dayOfYear")

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		d := o.AsDate()
		return FromBool(d != nil && d.t.Equal(get(recv)) && d.t.Location().String() == get(recv).Location().String())
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return compareTimes(get(recv), vm.expect(o, KindDate).AsDate().t)
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		t := get(recv)
		return vm.NewString(t.Format(time.RFC3339Nano) + "[" + t.Location().String() + "]")
	})
	vm.method0(c, "zone", func(vm *VM, recv Value) Value { return vm.newZone(get(recv).Location()) })
	vm.method0(c, "offsetSeconds", func(_ *VM, recv Value) Value {
		_, offset := get(recv).Zone()
		return FromInt32(int32(offset))
	})
	vm.method0(c, "toInstant", func(vm *VM, recv Value) Value { return vm.newInstant(get(recv)) })
	vm.method0(c, "toLocalDateTime", func(vm *VM, recv Value) Value { return vm.newLocalDateTime(get(recv)) })
	vm.method0(c, "toLocalDate", func(vm *VM, recv Value) Value { return vm.newLocalDate(get(recv)) })
	vm.method0(c, "toLocalTime", func(vm *VM, recv Value) Value { return vm.newLocalTime(localTimeOf(get(recv))) })
	vm.method1(c, "withZone", func(vm *VM, recv, z Value) Value {
		return vm.newZonedDate(get(recv).In(vm.zoneArg(z)))
	})
	vm.method1(c, "plus", func(vm *VM, recv, by Value) Value {
		return vm.newZonedDate(vm.shiftTime(get(recv), by, 1, true))
	})
	vm.method1(c, "minus", func(vm *VM, recv, by Value) Value {
		return vm.newZonedDate(vm.shiftTime(get(recv), by, -1, true))
	})
}

// ---------------------------------------------------------------------------
// Instant
// ---------------------------------------------------------------------------

func (vm *VM) registerInstantPrimitives() {
	c := vm.builtins.instant
	get := func(v Value) time.Time { return v.AsInstant().t }
	other := func(vm *VM, v Value) time.Time { return vm.expect(v, KindInstant).AsInstant().t }

	vm.static0(c, "now", func(vm *VM) Value { return vm.newInstant(time.Now()) })
	vm.static1(c, "ofEpochMillis", func(vm *VM, n Value) Value {
		return vm.newInstant(time.UnixMilli(vm.int64Arg(n)))
	})
	vm.static1(c, "ofEpochSeconds", func(vm *VM, n Value) Value {
		return vm.newInstant(time.Unix(vm.int64Arg(n), 0))
	})
	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		return vm.newInstant(vm.parseTime(time.RFC3339Nano, s, "instant"))
	})

	vm.timeMethods(c, get)

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		i := o.AsInstant()
		return FromBool(i != nil && i.t.Equal(get(recv)))
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return compareTimes(get(recv), other(vm, o))
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(get(recv).Format(time.RFC3339Nano))
	})
	vm.method0(c, "epochMillis", func(vm *VM, recv Value) Value { return vm.Int64(get(recv).UnixMilli()) })
	vm.method0(c, "epochSeconds", func(vm *VM, recv Value) Value { return vm.Int64(get(recv).Unix()) })
	vm.method0(c, "nano", func(_ *VM, recv Value) Value { return FromInt32(int32(get(recv).Nanosecond())) })
	vm.method1(c, "plus", func(vm *VM, recv, d Value) Value {
		return vm.newInstant(vm.shiftTime(get(recv), d, 1, false))
	})
	vm.method1(c, "minus", func(vm *VM, recv, d Value) Value {
		return vm.newInstant(vm.shiftTime(get(recv), d, -1, false))
	})
	vm.method1(c, "until", func(vm *VM, recv, o Value) Value {
		return vm.newDuration(other(vm, o).Sub(get(recv)))
	})
	vm.method1(c, "isBefore", func(vm *VM, recv, o Value) Value {
		return FromBool(get(recv).Before(other(vm, o)))
	})
	vm.method1(c, "isAfter", func(vm *VM, recv, o Value) Value {
		return FromBool(get(recv).After(other(vm, o)))
	})
	vm.method1(c, "atZone", func(vm *VM, recv, z Value) Value {
		return vm.newZonedDate(get(recv).In(vm.zoneArg(z)))
	})
}

// int64Arg accepts any integer that fits in 64 bits.
func (vm *VM) int64Arg(v Value) int64 {
	if !v.IsInteger() {
		vm.ThrowAt(ErrType, v.debug, "expected an integer, got %s", vm.typeName(v))
	}
	n := toBig(v)
	if !n.IsInt64() {
		vm.ThrowAt(ErrRange, v.debug, "integer %s out of range", n)
	}
	return n.Int64()
}

// ---------------------------------------------------------------------------
// Duration
// ---------------------------------------------------------------------------

func (vm *VM) scaledDuration(n Value, unit time.Duration) time.Duration {
	x := vm.int64Arg(n)
	if x > math.MaxInt64/int64(unit) || x < -math.MaxInt64/int64(unit) {
		vm.ThrowAt(ErrRange, n.debug, "duration overflow")
	}
	return time.Duration(x) * unit
}

func cmpInt64(a, b int64) Value {
	switch {
	case a < b:
		return FromInt32(-1)
	case a > b:
		return FromInt32(1)
	}
	return FromInt32(0)
}

func (vm *VM) durationArg(v Value) time.Duration {
	return vm.expect(v, KindDuration).AsDuration().d
}

func (vm *VM) registerDurationPrimitives() {
	c := vm.builtins.duration
	get := func(v Value) time.Duration { return v.AsDuration().d }

	// Duration(seconds, nanos?)
	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Duration", args, 1, 2)
		d := vm.scaledDuration(args[1], time.Second)
		if n, ok := optArg(args, 2); ok {
			d += time.Duration(vm.int64Arg(n))
		}
		return vm.newDuration(d)
	}

	units := []struct {
		name string
		unit time.Duration
	}{
		{"Nanos", time.Nanosecond}, {"Millis", time.Millisecond}, {"Seconds", time.Second},
		{"Minutes", time.Minute}, {"Hours", time.Hour}, {"Days", 24 * time.Hour},
	}
	for _, u := range units {
		u := u
		vm.static1(c, "of"+u.name, func(vm *VM, n Value) Value {
			return vm.newDuration(vm.scaledDuration(n, u.unit))
		})
		vm.method0(c, "to"+u.name, func(vm *VM, recv Value) Value {
			return vm.Int64(int64(get(recv) / u.unit))
		})
	}

	vm.static2(c, "between", func(vm *VM, a, b Value) Value {
		if a.kind != b.kind {
			vm.throwOperands(ErrType, a, b, "cannot measure between %s and %s", vm.typeName(a), vm.typeName(b))
		}
		switch a.kind {
		case KindInstant:
			return vm.newDuration(b.AsInstant().t.Sub(a.AsInstant().t))
		case KindLocalDateTime:
			return vm.newDuration(b.AsLocalDateTime().t.Sub(a.AsLocalDateTime().t))
		case KindDate:
			return vm.newDuration(b.AsDate().t.Sub(a.AsDate().t))
		case KindLocalTime:
			return vm.newDuration(time.Duration(b.AsLocalTime().nanos - a.AsLocalTime().nanos))
		}
		vm.ThrowAt(ErrType, a.debug, "cannot measure between %s values", vm.typeName(a))
		return Undefined
	})

	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		d, err := time.ParseDuration(vm.stringArg(s))
		if err != nil {
			vm.ThrowAt(ErrRange, s.debug, "invalid duration %q", s.AsString().s)
		}
		return vm.newDuration(d)
	})

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		d := o.AsDuration()
		return FromBool(d != nil && d.d == get(recv))
	})
	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		n := uint64(get(recv))
		return FromInt32(int32(fnvMix(fnvMix(fnvOffset, uint32(n)), uint32(n>>32))))
	})
	vm.method1(c, "compareTo", func(vm *VM, recv, o Value) Value {
		return cmpInt64(int64(get(recv)), int64(vm.durationArg(o)))
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(isoDuration(get(recv)))
	})
	vm.method1(c, "plus", func(vm *VM, recv, o Value) Value {
		return vm.newDuration(get(recv) + vm.durationArg(o))
	})
	vm.method1(c, "minus", func(vm *VM, recv, o Value) Value {
		return vm.newDuration(get(recv) - vm.durationArg(o))
	})
	vm.method1(c, "multiply", func(vm *VM, recv, n Value) Value {
		x, d := vm.int64Arg(n), get(recv)
		if x != 0 && (d*time.Duration(x))/time.Duration(x) != d {
			vm.ThrowAt(ErrRange, n.debug, "duration overflow")
		}
		return vm.newDuration(d * time.Duration(x))
	})
	vm.method1(c, "divide", func(vm *VM, recv, n Value) Value {
		x := vm.int64Arg(n)
		if x == 0 {
			vm.ThrowAt(ErrArithmetic, n.debug, "division by zero")
		}
		return vm.newDuration(get(recv) / time.Duration(x))
	})
	vm.method0(c, "negate", func(vm *VM, recv Value) Value { return vm.newDuration(-get(recv)) })
	vm.method0(c, "abs", func(vm *VM, recv Value) Value { return vm.newDuration(get(recv).Abs()) })
	vm.method0(c, "isZero", func(_ *VM, recv Value) Value { return FromBool(get(recv) == 0) })
	vm.method0(c, "isNegative", func(_ *VM, recv Value) Value { return FromBool(get(recv) < 0) })
}

// ---------------------------------------------------------------------------
// Period
// ---------------------------------------------------------------------------

func (vm *VM) registerPeriodPrimitives() {
	c := vm.builtins.period
	get := func(v Value) *Period { return v.AsPeriod() }
	arg := func(vm *VM, v Value) *Period { return vm.expect(v, KindPeriod).AsPeriod() }

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Period", args, 3, 3)
		return vm.newPeriod(vm.intArg(args[1]), vm.intArg(args[2]), vm.intArg(args[3]))
	}
	vm.static1(c, "ofDays", func(vm *VM, n Value) Value { return vm.newPeriod(0, 0, vm.intArg(n)) })
	vm.static1(c, "ofWeeks", func(vm *VM, n Value) Value { return vm.newPeriod(0, 0, 7*vm.intArg(n)) })
	vm.static1(c, "ofMonths", func(vm *VM, n Value) Value { return vm.newPeriod(0, vm.intArg(n), 0) })
	vm.static1(c, "ofYears", func(vm *VM, n Value) Value { return vm.newPeriod(vm.intArg(n), 0, 0) })
	vm.static2(c, "between", func(vm *VM, a, b Value) Value {
		from := vm.expect(a, KindLocalDate).AsLocalDate().t
		to := vm.expect(b, KindLocalDate).AsLocalDate().t
		y, m, d := periodBetween(from, to)
		return vm.newPeriod(y, m, d)
	})

	vm.method0(c, "years", func(_ *VM, recv Value) Value { return FromInt32(int32(get(recv).years)) })
	vm.method0(c, "months", func(_ *VM, recv Value) Value { return FromInt32(int32(get(recv).months)) })
	vm.method0(c, "days", func(_ *VM, recv Value) Value { return FromInt32(int32(get(recv).days)) })
	vm.method0(c, "totalMonths", func(vm *VM, recv Value) Value {
		p := get(recv)
		return vm.Int64(int64(p.years)*12 + int64(p.months))
	})

	vm.method1(c, "equals", func(_ *VM, recv, o Value) Value {
		a, b := get(recv), o.AsPeriod()
		return FromBool(b != nil && a.years == b.years && a.months == b.months && a.days == b.days)
	})
	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		p := get(recv)
		h := fnvMix(fnvMix(fnvMix(fnvOffset, uint32(p.years)), uint32(p.months)), uint32(p.days))
		return FromInt32(int32(h))
	})
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(periodString(get(recv)))
	})
	vm.method1(c, "plus", func(vm *VM, recv, o Value) Value {
		a, b := get(recv), arg(vm, o)
		return vm.newPeriod(a.years+b.years, a.months+b.months, a.days+b.days)
	})
	vm.method1(c, "minus", func(vm *VM, recv, o Value) Value {
		a, b := get(recv), arg(vm, o)
		return vm.newPeriod(a.years-b.years, a.months-b.months, a.days-b.days)
	})
	vm.method1(c, "multiply", func(vm *VM, recv, n Value) Value {
		p, x := get(recv), vm.intArg(n)
		return vm.newPeriod(p.years*x, p.months*x, p.days*x)
	})
	vm.method0(c, "negate", func(vm *VM, recv Value) Value {
		p := get(recv)
		return vm.newPeriod(-p.years, -p.months, -p.days)
	})
	// normalized folds whole years out of the months field.
	vm.method0(c, "normalized", func(vm *VM, recv Value) Value {
		p := get(recv)
		total := p.years*12 + p.months
		return vm.newPeriod(total/12, total%12, p.days)
	})
	vm.method0(c, "isZero", func(_ *VM, recv Value) Value {
		p := get(recv)
		return FromBool(p.years == 0 && p.months == 0 && p.days == 0)
	})
	vm.method0(c, "isNegative", func(_ *VM, recv Value) Value {
		p := get(recv)
		return FromBool(p.years < 0 || p.months < 0 || p.days < 0)
	})
}
