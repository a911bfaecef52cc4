package vm

import "testing"

func TestLocalDate(t *testing.T) {
	v, _ := newTestVM()
	cls := builtin(t, v, "LocalDate")

	_, err := v.protect(func() Value {
		d := v.Invoke(cls, "parse", v.NewString("2024-02-28"))
		next := v.Invoke(d, "plusDays", FromInt32(1))

		if s := v.ToString(next); s != "2024-02-29" {
			t.Errorf("plusDays(1) = %s, want 2024-02-29", s)
		}
		if !v.Invoke(d, "isLeapYear").Bool() {
			t.Error("2024 should be a leap year")
		}
		if n := v.Invoke(d, "lengthOfMonth").Int32(); n != 29 {
			t.Errorf("lengthOfMonth = %d, want 29", n)
		}
		if s := v.ToString(v.Invoke(d, "format", v.NewString("%d/%m/%Y"))); s != "28/02/2024" {
			t.Errorf("format = %s, want 28/02/2024", s)
		}
		if c := v.Invoke(d, "compareTo", next).Int32(); c >= 0 {
			t.Errorf("compareTo = %d, want negative", c)
		}
		same := v.Call(cls, FromInt32(2024), FromInt32(2), FromInt32(28))
		if !v.Equals(d, same) || v.Hash(d) != v.Hash(same) {
			t.Error("equal dates should be equal with equal hashes")
		}
		return Null
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalDateInvalid(t *testing.T) {
	v, _ := newTestVM()
	cls := builtin(t, v, "LocalDate")
	_, err := v.protect(func() Value {
		return v.Invoke(cls, "parse", v.NewString("2024-13-40"))
	})
	if err == nil {
		t.Error("an invalid date should be rejected")
	}
}

func TestDuration(t *testing.T) {
	v, _ := newTestVM()
	cls := builtin(t, v, "Duration")

	_, err := v.protect(func() Value {
		d := v.Invoke(cls, "ofMinutes", FromInt32(90))
		if n := v.Invoke(d, "toHours").Int32(); n != 1 {
			t.Errorf("toHours = %d, want 1", n)
		}
		if n := v.Invoke(d, "toSeconds").Int32(); n != 5400 {
			t.Errorf("toSeconds = %d, want 5400", n)
		}
		twice := v.Invoke(d, "plus", d)
		if n := v.Invoke(twice, "toMinutes").Int32(); n != 180 {
			t.Errorf("plus = %d minutes, want 180", n)
		}
		if !v.Invoke(v.Invoke(d, "negate"), "isNegative").Bool() {
			t.Error("negated duration should be negative")
		}
		return Null
	})
	if err != nil {
		t.Fatal(err)
	}
}
