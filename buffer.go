package rs485

// buffer is one fixed-capacity region. As a transmit buffer the cursor is
// the next byte to send and remaining counts unsent bytes. As a receive
// buffer the cursor is the next free slot and remaining counts stored bytes.
type buffer struct {
	data      []byte
	cursor    int
	remaining int
	end       int
}

func newBuffer(capacity int) *buffer {
	return &buffer{
		data: make([]byte, capacity),
		end:  capacity - 1,
	}
}

func (b *buffer) capacity() int {
	return len(b.data)
}

func (b *buffer) reset() {
	b.cursor = 0
	b.remaining = 0
}

// load replaces the contents with p. The buffer is untouched on error.
func (b *buffer) load(p []byte) error {
	if len(p) >= len(b.data) {
		return ErrBufferCapacity
	}
	copy(b.data, p)
	b.cursor = 0
	b.remaining = len(p)
	return nil
}

// takeByte returns the byte under the cursor. The caller checks remaining.
func (b *buffer) takeByte() byte {
	c := b.data[b.cursor]
	b.cursor++
	b.remaining--
	return c
}

// append stores c, or drops it when the cursor has reached end. A full
// buffer keeps the oldest bytes.
func (b *buffer) append(c byte) bool {
	if b.cursor+1 >= b.end {
		return false
	}
	b.data[b.cursor] = c
	b.cursor++
	b.remaining++
	return true
}

// snapshot copies up to len(dst) stored bytes and empties the buffer.
func (b *buffer) snapshot(dst []byte) int {
	n := min(len(dst), b.remaining)
	copy(dst, b.data[:n])
	b.reset()
	return n
}
