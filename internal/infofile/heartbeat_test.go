package infofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeconds(t *testing.T) {
	good := []struct {
		in   string
		want uint32
	}{
		{"0", 0},
		{"0.000", 0},
		{"1.5", 1500},
		{"30", 30000},
		{".25", 250},
		{"7.", 7000},
		{"0.0019", 1},
		{"2.9999", 2999},
		{"0004294967.295", 4294967295},
		{"4294967.295", 4294967295},
		{"4294967.2959", 4294967295},
	}
	for _, tc := range good {
		t.Run(tc.in, func(t *testing.T) {
			ms, err := ParseSeconds(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ms)
		})
	}

	bad := []string{"", ".", "-1", "-0.5", "+1", "1e3", "4294967.296", "4294968", "10000000", "1.2.3", " 1", "1,5", "inf"}
	for _, in := range bad {
		t.Run("bad "+in, func(t *testing.T) {
			_, err := ParseSeconds(in)
			assert.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[uint32]string{
		0:          "0.000",
		1:          "0.001",
		42:         "0.042",
		999:        "0.999",
		1000:       "1.000",
		1500:       "1.500",
		4294967295: "4294967.295",
	}
	for ms, want := range cases {
		assert.Equal(t, want, FormatSeconds(ms))
	}
}

func TestHeartbeatField(t *testing.T) {
	netTimeoutHalf := uint32(30000)
	f := NewHeartbeatField(func() uint32 { return netTimeoutHalf })

	assert.True(t, f.IsDefault())
	assert.Equal(t, "30.000", render(f.SaveTo))

	require.NoError(t, f.LoadFrom(reader("1.5\n")))
	assert.False(t, f.IsDefault())
	assert.Equal(t, uint32(1500), f.Millis())
	assert.Equal(t, "1.500", render(f.SaveTo))

	require.NoError(t, f.LoadFrom(reader("4294967.295\n")))
	assert.Equal(t, uint32(4294967295), f.Millis())

	assert.ErrorIs(t, f.LoadFrom(reader("-1\n")), ErrMalformedLine)
	assert.ErrorIs(t, f.LoadFrom(reader("4294967.296\n")), ErrMalformedLine)

	require.NoError(t, f.SetDefault())
	netTimeoutHalf = 5000
	assert.Equal(t, uint32(5000), f.Millis())
}
