package rs485

import (
	"bytes"
	"errors"
	"testing"
)

func TestBufferLoad(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr error
	}{
		{"empty", 0, nil},
		{"one byte", 1, nil},
		{"capacity-1", 15, nil},
		{"capacity", 16, ErrBufferCapacity},
		{"over capacity", 17, ErrBufferCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(16)
			b.cursor, b.remaining = 3, 3

			err := b.load(bytes.Repeat([]byte{0x55}, tt.length))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil {
				if b.cursor != 3 || b.remaining != 3 {
					t.Errorf("Expected rejected load to leave cursor/remaining at 3/3, got %d/%d", b.cursor, b.remaining)
				}
				return
			}
			if b.cursor != 0 || b.remaining != tt.length {
				t.Errorf("Expected cursor 0 remaining %d, got %d/%d", tt.length, b.cursor, b.remaining)
			}
		})
	}
}

func TestBufferTakeByte(t *testing.T) {
	b := newBuffer(8)
	if err := b.load([]byte("abc")); err != nil {
		t.Fatal(err)
	}

	var out []byte
	for b.remaining > 0 {
		out = append(out, b.takeByte())
	}
	if string(out) != "abc" {
		t.Errorf("Expected \"abc\", got %q", out)
	}
	if b.cursor != 3 {
		t.Errorf("Expected cursor 3, got %d", b.cursor)
	}
}

func TestBufferAppendDropsNewest(t *testing.T) {
	b := newBuffer(8)

	accepted := 0
	for i := 0; i < 20; i++ {
		if b.append(byte(i)) {
			accepted++
		}
	}

	// end is capacity-1 and a byte is stored only while cursor+1 < end.
	if accepted != 6 {
		t.Errorf("Expected 6 accepted bytes, got %d", accepted)
	}
	if b.remaining != 6 || b.cursor != 6 {
		t.Errorf("Expected remaining/cursor 6/6, got %d/%d", b.remaining, b.cursor)
	}
	if !bytes.Equal(b.data[:6], []byte{0, 1, 2, 3, 4, 5}) {
		t.Errorf("Expected oldest bytes kept, got %v", b.data[:6])
	}
	if b.remaining > b.capacity() {
		t.Errorf("remaining %d exceeds capacity %d", b.remaining, b.capacity())
	}
}

func TestBufferSnapshot(t *testing.T) {
	tests := []struct {
		name string
		dst  int
		want string
	}{
		{"larger than available", 50, "hello"},
		{"exact", 5, "hello"},
		{"smaller than available", 2, "he"},
		{"zero", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(16)
			for _, c := range []byte("hello") {
				b.append(c)
			}

			dst := make([]byte, tt.dst)
			n := b.snapshot(dst)
			if string(dst[:n]) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, dst[:n])
			}
			if b.remaining != 0 || b.cursor != 0 {
				t.Errorf("Expected empty buffer after snapshot, got remaining %d cursor %d", b.remaining, b.cursor)
			}
		})
	}
}
