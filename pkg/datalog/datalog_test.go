package datalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillsThenStops(t *testing.T) {
	b := New(3, "speedL", "speedR")
	assert.Equal(t, 3, b.Capacity())
	assert.True(t, b.Append(1, 2))
	assert.True(t, b.Append(3))
	assert.True(t, b.Append(5, 6, 7))
	assert.False(t, b.Append(8, 9), "full buffer must not wrap")
	assert.True(t, b.Full())
	assert.Equal(t, 3, b.Len())

	assert.Equal(t, []int32{1, 2}, b.Record(0))
	assert.Equal(t, []int32{3, 0}, b.Record(1))
	assert.Equal(t, []int32{5, 6}, b.Record(2))
	assert.Nil(t, b.Record(3))
}

func TestNoChannelsIsAlwaysFull(t *testing.T) {
	b := New(4)
	assert.Equal(t, 0, b.Capacity())
	assert.False(t, b.Append(1))
	assert.False(t, b.Append())
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.Full())
}

func TestResetStartsNewSession(t *testing.T) {
	b := New(2, "x", "y")
	first := b.Session()
	b.Append(1, 1)
	b.Append(2, 2)
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Full())
	assert.NotEqual(t, first, b.Session())
	assert.True(t, b.Append(3, 3))
	assert.Equal(t, []int32{3, 3}, b.Record(0))
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, "0,100,-20,16\r\n", FormatRecord(0, []int32{100, -20, 16}))
	assert.Equal(t, "7\r\n", FormatRecord(7, nil))
}

func TestExport(t *testing.T) {
	b := New(10, "error", "dutyL", "dutyR")
	b.Append(-200, 550, 150)
	b.Append(0, 350, 350)

	var out bytes.Buffer
	require.NoError(t, b.Export(&out))
	lines := strings.SplitAfter(out.String(), "\r\n")
	require.Len(t, lines, 5)
	assert.Equal(t, Header+"\r\n", lines[0])
	assert.Equal(t, "# session "+b.Session().String()+" channels error,dutyL,dutyR\r\n", lines[1])
	assert.Equal(t, "0,-200,550,150\r\n", lines[2])
	assert.Equal(t, "1,0,350,350\r\n", lines[3])
	assert.Equal(t, "", lines[4])
}

type failingWriter struct {
	after int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after == 0 {
		return 0, errors.New("line dropped")
	}
	f.after--
	return len(p), nil
}

func TestExportStopsOnError(t *testing.T) {
	b := New(4, "v")
	b.Append(1)
	b.Append(2)
	err := b.Export(&failingWriter{after: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}
