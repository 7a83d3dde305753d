package wrap

import "testing"

func TestUint8Basics(t *testing.T) {
	u := NewUint8(5)
	if u.Get() != 5 {
		t.Fatalf("expected 5, got %d", u.Get())
	}
	u.Set(6)
	if u.Get() != 6 {
		t.Fatalf("expected 6 after set, got %d", u.Get())
	}
	u.Inc()
	if u.Get() != 7 {
		t.Fatalf("expected 7 after inc, got %d", u.Get())
	}
	u.Add(2)
	if u.Get() != 9 {
		t.Fatalf("expected 9 after add, got %d", u.Get())
	}
	u.Dec()
	u.Sub(2)
	if u.Get() != 6 {
		t.Fatalf("expected 6 after dec/sub, got %d", u.Get())
	}
	if got := NewUint8(5).Plus(10); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
	if got := NewUint8(250).Plus(10); got != 260 {
		t.Fatalf("plus must not wrap the plain result, got %d", got)
	}
}

func TestUint8Wrap(t *testing.T) {
	u := NewUint8(0xFF)
	u.Inc()
	if u.Get() != 0 {
		t.Fatalf("expected overflow to 0, got %d", u.Get())
	}
	u.Dec()
	if u.Get() != 0xFF {
		t.Fatalf("expected underflow to 255, got %d", u.Get())
	}
	u.Set(-1)
	if u.Get() != 0xFF {
		t.Fatalf("expected set(-1) to mask to 255, got %d", u.Get())
	}
	u.Set(0x1FE)
	if u.Get() != 0xFE {
		t.Fatalf("expected set to mask high bits, got %d", u.Get())
	}
	u = 3
	u.Sub(5)
	if u.Get() != 254 {
		t.Fatalf("expected 254, got %d", u.Get())
	}
}

func TestUint16Basics(t *testing.T) {
	u := NewUint16(5)
	u.Inc()
	u.Add(2)
	u.Dec()
	if u.Get() != 7 {
		t.Fatalf("expected 7, got %d", u.Get())
	}
	if got := u.Plus(10); got != 17 {
		t.Fatalf("expected 17, got %d", got)
	}
	u = NewUint16(0xFFFF)
	u.Inc()
	if u.Get() != 0 {
		t.Fatalf("expected overflow to 0, got %d", u.Get())
	}
	u.Dec()
	if u.Get() != 0xFFFF {
		t.Fatalf("expected underflow to 0xFFFF, got %d", u.Get())
	}
}

func TestIncrementFullCycleReturnsToStart(t *testing.T) {
	for _, start := range []int{0, 1, 127, 254, 255} {
		u := NewUint8(start)
		for i := 0; i < 1<<8; i++ {
			u.Inc()
		}
		if u.Int() != start {
			t.Fatalf("uint8 %d: expected to return to start, got %d", start, u.Int())
		}
	}
	for _, start := range []int{0, 1, 0x7FFF, 0xFFFF} {
		u := NewUint16(start)
		for i := 0; i < 1<<16; i++ {
			u.Inc()
		}
		if u.Int() != start {
			t.Fatalf("uint16 %d: expected to return to start, got %d", start, u.Int())
		}
	}
}

func TestDecrementZeroYieldsMax(t *testing.T) {
	var a Uint8
	a.Dec()
	if a.Int() != 1<<8-1 {
		t.Fatalf("expected 255, got %d", a.Int())
	}
	var b Uint16
	b.Dec()
	if b.Int() != 1<<16-1 {
		t.Fatalf("expected 65535, got %d", b.Int())
	}
}
