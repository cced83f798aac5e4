// Package datalog records per-tick controller channels into a fixed buffer
// and exports them as CRLF-terminated CSV records.
package datalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const Header = "***Receiving buffer data***"

// Buffer holds up to a fixed number of records, each one value per named
// channel. Once full it drops further appends until Reset.
type Buffer struct {
	lock    sync.Mutex
	names   []string
	values  []int32
	n       int
	session uuid.UUID
}

func New(capacity int, names ...string) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		names:   names,
		values:  make([]int32, capacity*len(names)),
		session: uuid.New(),
	}
}

// Append stores one record. Missing values are recorded as 0 and extra
// values are dropped. It returns false when the buffer is full, and always
// for a buffer with no channels.
func (b *Buffer) Append(values ...int32) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	width := len(b.names)
	if width == 0 || (b.n+1)*width > len(b.values) {
		return false
	}
	row := b.values[b.n*width : (b.n+1)*width]
	n := copy(row, values)
	for i := n; i < width; i++ {
		row[i] = 0
	}
	b.n++
	return true
}

// Reset empties the buffer and starts a new recording session.
func (b *Buffer) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.n = 0
	b.session = uuid.New()
}

func (b *Buffer) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.n
}

func (b *Buffer) Capacity() int {
	if len(b.names) == 0 {
		return 0
	}
	return len(b.values) / len(b.names)
}

func (b *Buffer) Full() bool {
	return b.Len() >= b.Capacity()
}

func (b *Buffer) Names() []string {
	return b.names
}

func (b *Buffer) Session() uuid.UUID {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.session
}

// Record returns a copy of record i.
func (b *Buffer) Record(i int) []int32 {
	b.lock.Lock()
	defer b.lock.Unlock()
	if i < 0 || i >= b.n {
		return nil
	}
	width := len(b.names)
	return append([]int32(nil), b.values[i*width:(i+1)*width]...)
}

// FormatRecord renders "<index>,<v1>,<v2>,...\r\n".
func FormatRecord(index int, values []int32) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(index))
	for _, v := range values {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
	sb.WriteString("\r\n")
	return sb.String()
}

// Export writes the header, a session line and then every stored record,
// one Write per line.
func (b *Buffer) Export(w io.Writer) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, err := io.WriteString(w, Header+"\r\n"); err != nil {
		return err
	}
	session := fmt.Sprintf("# session %s channels %s\r\n", b.session, strings.Join(b.names, ","))
	if _, err := io.WriteString(w, session); err != nil {
		return err
	}
	width := len(b.names)
	for i := 0; i < b.n; i++ {
		if _, err := io.WriteString(w, FormatRecord(i, b.values[i*width:(i+1)*width])); err != nil {
			return fmt.Errorf("export record %d: %w", i, err)
		}
	}
	return nil
}
