package pci

import (
	"strings"
	"testing"
)

// recordingAccessor serves reads from a backing slice and records every
// requested range.
type recordingAccessor struct {
	data     []byte
	requests [][2]int
	deny     func(pos, n int) bool
}

func (a *recordingAccessor) ReadConfig(pos int, buf []byte) bool {
	a.requests = append(a.requests, [2]int{pos, len(buf)})
	if a.deny != nil && a.deny(pos, len(buf)) {
		return false
	}
	if pos+len(buf) > len(a.data) {
		return false
	}
	copy(buf, a.data[pos:pos+len(buf)])
	return true
}

func TestConfigBufferGrowth(t *testing.T) {
	cb := NewConfigBuffer(&recordingAccessor{data: make([]byte, 4096)})

	if cb.Len() != 64 {
		t.Fatalf("initial Len = %d, want 64", cb.Len())
	}
	if !cb.Ensure(200, 10) {
		t.Fatal("Ensure(200, 10) failed")
	}
	if cb.Len() != 256 {
		t.Errorf("Len after Ensure(200, 10) = %d, want 256", cb.Len())
	}
	if !cb.Ensure(300, 1) {
		t.Fatal("Ensure(300, 1) failed")
	}
	if cb.Len() != 512 {
		t.Errorf("Len after Ensure(300, 1) = %d, want 512", cb.Len())
	}

	// Beyond the extended space: refused, state intact.
	if cb.Ensure(4000, 200) {
		t.Error("Ensure beyond 4096 should fail")
	}
	if cb.Len() != 512 {
		t.Errorf("failed Ensure changed Len to %d", cb.Len())
	}
}

func TestConfigBufferFetchTrims(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	acc := &recordingAccessor{data: data}
	cb := NewConfigBuffer(acc)

	if !cb.Fetch(0, 64) {
		t.Fatal("Fetch(0, 64) failed")
	}
	// Overlapping fetch asks only for the missing suffix.
	if !cb.Fetch(32, 64) {
		t.Fatal("Fetch(32, 64) failed")
	}
	// Fully present range performs no read at all.
	if !cb.Fetch(16, 32) {
		t.Fatal("Fetch(16, 32) failed")
	}

	want := [][2]int{{0, 64}, {64, 32}}
	if len(acc.requests) != len(want) {
		t.Fatalf("requests = %v, want %v", acc.requests, want)
	}
	for i, req := range want {
		if acc.requests[i] != req {
			t.Errorf("request %d = %v, want %v", i, acc.requests[i], req)
		}
	}

	if got := cb.U8(0x21); got != 0x21 {
		t.Errorf("U8(0x21) = %#x, want 0x21", got)
	}
}

func TestConfigBufferFetchFailure(t *testing.T) {
	acc := &recordingAccessor{
		data: make([]byte, 256),
		deny: func(pos, n int) bool { return pos >= 64 },
	}
	cb := NewConfigBuffer(acc)

	if !cb.Fetch(0, 64) {
		t.Fatal("Fetch(0, 64) failed")
	}
	if cb.Fetch(64, 64) {
		t.Fatal("Fetch(64, 64) should fail")
	}
	if cb.Present(64, 1) {
		t.Error("failed fetch must not mark bytes present")
	}
	if !cb.Present(0, 64) {
		t.Error("failed fetch must not disturb earlier bytes")
	}
}

func TestConfigBufferAccessors(t *testing.T) {
	data := make([]byte, 64)
	data[0x10] = 0x78
	data[0x11] = 0x56
	data[0x12] = 0x34
	data[0x13] = 0x12
	cb := NewConfigBuffer(&recordingAccessor{data: data})
	if !cb.Fetch(0, 64) {
		t.Fatal("Fetch failed")
	}

	if got := cb.U16(0x10); got != 0x5678 {
		t.Errorf("U16 = %#x, want 0x5678", got)
	}
	if got := cb.U32(0x10); got != 0x12345678 {
		t.Errorf("U32 = %#x, want 0x12345678", got)
	}
}

func TestConfigBufferAbsentBytePanics(t *testing.T) {
	cb := NewConfigBuffer(&recordingAccessor{data: make([]byte, 256)})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("accessing an absent byte must panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.HasPrefix(msg, "Internal bug: accessing non-read configuration byte") {
			t.Errorf("unexpected panic value: %v", r)
		}
	}()
	cb.U8(0x20)
}
