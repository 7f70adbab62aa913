package infofile

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMandatoryFields(t *testing.T) {
	var port IntField[uint32]
	assert.False(t, port.IsDefault())
	assert.ErrorIs(t, port.SetDefault(), ErrNoDefault)
	assert.False(t, IsOptional(&port))

	require.NoError(t, port.LoadFrom(reader("3306\n")))
	assert.Equal(t, uint32(3306), port.Get())
	assert.Equal(t, "3306", render(port.SaveTo))

	host := NewStringField(8)
	require.NoError(t, host.LoadFrom(reader("db-1\n")))
	assert.Equal(t, "db-1", host.String())
	assert.ErrorIs(t, host.LoadFrom(reader("db-12345\n")), ErrCapacityExceeded)

	host.Set("much-too-long")
	assert.Equal(t, "much-to", host.String(), "Set cuts to capacity-1")
}

func TestOptionalIntField(t *testing.T) {
	option := uint32(60)
	f := NewOptionalIntField(func() uint32 { return option })

	assert.True(t, f.IsDefault())
	assert.Equal(t, uint32(60), f.Get())

	option = 90
	assert.Equal(t, uint32(90), f.Get(), "fallback is read late")
	assert.Equal(t, "90", render(f.SaveTo))

	// Loading the fallback value still leaves the field SET.
	require.NoError(t, f.LoadFrom(reader("90\n")))
	assert.False(t, f.IsDefault())
	option = 10
	assert.Equal(t, uint32(90), f.Get())

	require.NoError(t, f.SetDefault())
	assert.True(t, f.IsDefault())
	assert.Equal(t, uint32(10), f.Get())

	assert.ErrorIs(t, f.LoadFrom(reader("ten\n")), ErrMalformedLine)
}

func TestBoolField(t *testing.T) {
	option := true
	f := NewBoolField(func() bool { return option })

	assert.True(t, f.IsDefault())
	assert.True(t, f.Get())
	option = false
	assert.False(t, f.Get(), "DEFAULT tracks the live option")
	assert.Equal(t, "0", render(f.SaveTo))

	require.NoError(t, f.LoadFrom(reader("1\n")))
	assert.False(t, f.IsDefault())
	assert.True(t, f.Get())

	require.NoError(t, f.LoadFrom(reader("0\n")))
	assert.False(t, f.Get())

	for _, in := range []string{"2\n", "y\n", "01\n", "\n", "true\n"} {
		assert.ErrorIs(t, f.LoadFrom(reader(in)), ErrMalformedLine, "input %q", in)
	}
	assert.ErrorIs(t, f.LoadFrom(reader("")), ErrTruncated)
}

func TestPathField(t *testing.T) {
	option := "/etc/ssl/ca.pem"
	f := NewPathField(PathCapacity, func() string { return option })

	assert.True(t, f.IsDefault())
	assert.Equal(t, "/etc/ssl/ca.pem", f.Get())

	f.Set("")
	assert.False(t, f.IsDefault(), "empty is not DEFAULT")
	assert.Equal(t, "", f.Get())

	require.NoError(t, f.SetDefault())
	assert.True(t, f.IsDefault())

	f.Assign(nil)
	assert.True(t, f.IsDefault(), "nil assignment is a no-op")

	path := "/srv/ca.pem"
	f.Assign(&path)
	assert.Equal(t, "/srv/ca.pem", f.Get())
	assert.Equal(t, "/srv/ca.pem", render(f.SaveTo))

	require.NoError(t, f.SetDefault())
	require.NoError(t, f.LoadFrom(reader("\n")))
	assert.False(t, f.IsDefault())
	assert.Equal(t, "", f.Get())

	long := strings.Repeat("x", PathCapacity)
	assert.ErrorIs(t, f.LoadFrom(reader(long+"\n")), ErrCapacityExceeded)
}

func TestGTIDModeField(t *testing.T) {
	option := GTIDDefault
	f := NewGTIDModeField(func() GTIDMode { return option })

	assert.True(t, f.IsDefault())
	assert.Equal(t, GTIDSlavePos, f.Get())

	f.GTIDSupported = false
	assert.Equal(t, GTIDNo, f.Get())

	option = GTIDCurrentPos
	assert.Equal(t, GTIDCurrentPos, f.Get(), "process option wins over capability")
	option = GTIDDefault

	require.NoError(t, f.LoadFrom(reader("1\n")))
	assert.Equal(t, GTIDCurrentPos, f.Get())
	assert.Equal(t, "1", render(f.SaveTo))

	require.NoError(t, f.SetDefault())
	assert.False(t, f.GTIDSupported, "reset keeps the cached capability")
	assert.Equal(t, GTIDNo, f.Get())

	for _, in := range []string{"3\n", "-1\n", "12\n", "a\n", "\n"} {
		assert.ErrorIs(t, f.LoadFrom(reader(in)), ErrMalformedLine, "input %q", in)
	}

	f.Set(GTIDDefault)
	assert.True(t, f.IsDefault())
}

func TestParseGTIDMode(t *testing.T) {
	m, err := ParseGTIDMode("slave_pos")
	require.NoError(t, err)
	assert.Equal(t, GTIDSlavePos, m)

	m, err = ParseGTIDMode("DEFAULT")
	require.NoError(t, err)
	assert.Equal(t, GTIDDefault, m)

	_, err = ParseGTIDMode("maybe")
	assert.Error(t, err)

	assert.Equal(t, "Current_Pos", GTIDCurrentPos.String())
}

func TestPlaceholder(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("6f1c-uuid\nnext\n"))
	require.NoError(t, Placeholder.LoadFrom(r))

	line, err := ReadLine(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "next", line)
	assert.Empty(t, render(Placeholder.SaveTo))
}
