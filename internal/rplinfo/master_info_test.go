package rplinfo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rplinfo/internal/infofile"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func newPrimary(opts *Options) *MasterInfo {
	mi := NewMasterInfo(opts, IDArrays{})
	mi.LogFile.Set("mysql-bin.000003")
	mi.LogPos.Set(1234)
	mi.Host.Set("primary.example")
	mi.User.Set("repl")
	mi.Password.Set("secret")
	mi.Port.Set(3306)
	return mi
}

func save(t *testing.T, mi *MasterInfo) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, mi.Save(&buf))
	return buf.String()
}

func TestMasterInfoRegistry(t *testing.T) {
	require.NoError(t, NewMasterInfo(nil, IDArrays{}).Verify())
	assert.Equal(t, len("ssl_verify_server_cert"), masterExtension.MaxKeyLen())
	assert.Len(t, masterLayout, 20)
}

func TestMasterInfoSaveDefaults(t *testing.T) {
	mi := newPrimary(NewOptions())

	want := lines(
		"mysql-bin.000003",
		"1234",
		"primary.example",
		"repl",
		"secret",
		"3306",
		"60",
		"1",
		"", "", "", "", "",
		"1",
		"30.000",
		"0",
		"",
		"100000",
		"", "",
		"connect_retry",
		"ssl",
		"ssl_ca",
		"ssl_capath",
		"ssl_cert",
		"ssl_cipher",
		"ssl_key",
		"ssl_crl",
		"ssl_crlpath",
		"ssl_verify_server_cert",
		"heartbeat_period",
		"retry_count",
		"using_gtid",
		"do_domain_ids=0",
		"ignore_domain_ids=0",
		"END_MARKER",
	)
	assert.Equal(t, want, save(t, mi))
}

func TestMasterInfoRoundTrip(t *testing.T) {
	opts := NewOptions()
	serverIDs := []uint32{}
	mi := NewMasterInfo(opts, IDArrays{IgnoreServerIDs: &serverIDs})
	mi.LogFile.Set("mysql-bin.000009")
	mi.LogPos.Set(1 << 40)
	mi.Host.Set("10.0.0.5")
	mi.User.Set("repl")
	mi.Password.Set("")
	mi.Port.Set(3307)
	mi.ConnectRetry.Set(5)
	mi.SSL.Set(false)
	mi.SSLCA.Set("/etc/mysql/ca.pem")
	mi.SSLKey.Set("")
	mi.HeartbeatPeriod.SetMillis(1500)
	mi.IgnoreServerIDs.Set([]uint32{7, 3, 9})
	mi.RetryCount.Set(1 << 33)
	mi.UseGTID.Set(infofile.GTIDCurrentPos)
	mi.IgnoreDomainIDs.Set([]uint32{2})

	data := save(t, mi)
	assert.Contains(t, data, "\n3 7 3 9\n")
	assert.Contains(t, data, "\n1.500\n")
	assert.Contains(t, data, "\nusing_gtid=1\n")
	assert.Contains(t, data, "\nignore_domain_ids=1 2\n")

	var loadedIDs []uint32
	loaded := NewMasterInfo(opts, IDArrays{IgnoreServerIDs: &loadedIDs})
	report, err := loaded.Load(strings.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, report.Skipped())

	assert.Equal(t, NewStatus(mi, nil), NewStatus(loaded, nil))
	assert.Equal(t, []uint32{7, 3, 9}, loadedIDs)
	assert.False(t, loaded.SSLKey.IsDefault())
	assert.True(t, loaded.SSLCert.IsDefault())
	assert.Equal(t, data, save(t, loaded))
}

func TestMasterInfoDefaultsTrackOptions(t *testing.T) {
	opts := NewOptions()
	mi := newPrimary(opts)
	data := save(t, mi)

	loaded := NewMasterInfo(opts, IDArrays{})
	_, err := loaded.Load(strings.NewReader(data))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"connect_retry", "ssl", "ssl_ca", "ssl_capath", "ssl_cert", "ssl_cipher",
		"ssl_key", "ssl_crl", "ssl_crlpath", "ssl_verify_server_cert",
		"heartbeat_period", "retry_count", "using_gtid",
	}, loaded.DefaultKeys())

	s := opts.Settings()
	s.ConnectRetry = 10
	s.SSL = false
	s.SSLCA = "/new/ca.pem"
	s.NetTimeout = 20
	s.UseGTID = infofile.GTIDCurrentPos
	opts.Apply(s)

	assert.Equal(t, uint32(10), loaded.ConnectRetry.Get())
	assert.False(t, loaded.SSL.Get())
	assert.Equal(t, "/new/ca.pem", loaded.SSLCA.Get())
	assert.Equal(t, uint32(10000), loaded.HeartbeatPeriod.Millis())
	assert.Equal(t, infofile.GTIDCurrentPos, loaded.UseGTID.Get())

	period := uint32(2500)
	s.HeartbeatPeriod = &period
	opts.Apply(s)
	assert.Equal(t, uint32(2500), loaded.HeartbeatPeriod.Millis())
	period = 1
	assert.Equal(t, uint32(2500), opts.HeartbeatPeriodMillis(), "Apply copies the period")

	// The positional section saves effective values; the keys keep them
	// DEFAULT on the next load.
	again := save(t, loaded)
	assert.True(t, strings.HasPrefix(again, lines(
		"mysql-bin.000003", "1234", "primary.example", "repl", "secret", "3306",
		"10", "0", "/new/ca.pem",
	)))
	reloaded := NewMasterInfo(opts, IDArrays{})
	_, err = reloaded.Load(strings.NewReader(again))
	require.NoError(t, err)
	assert.True(t, reloaded.ConnectRetry.IsDefault())
	assert.True(t, reloaded.SSLCA.IsDefault())
}

func TestMasterInfoLongDefaultPathRoundTrips(t *testing.T) {
	opts := NewOptions()
	s := opts.Settings()
	s.SSLCA = "/" + strings.Repeat("a", 600)
	opts.Apply(s)

	mi := newPrimary(opts)
	assert.Len(t, mi.SSLCA.Get(), infofile.PathCapacity-1)

	loaded := NewMasterInfo(opts, IDArrays{})
	_, err := loaded.Load(strings.NewReader(save(t, mi)))
	require.NoError(t, err)
	assert.Equal(t, "primary.example", loaded.Host.String())
	assert.Equal(t, uint64(1234), loaded.LogPos.Get())
	assert.True(t, loaded.SSLCA.IsDefault())
}

func TestMasterInfoGTIDCacheSurvivesReset(t *testing.T) {
	mi := newPrimary(NewOptions())
	assert.Equal(t, infofile.GTIDSlavePos, mi.UseGTID.Get())

	mi.UseGTID.GTIDSupported = false
	assert.Equal(t, infofile.GTIDNo, mi.UseGTID.Get())

	mi.UseGTID.Set(infofile.GTIDCurrentPos)
	mi.ConnectRetry.Set(1)
	mi.ResetToDefaults()

	assert.True(t, mi.UseGTID.IsDefault())
	assert.True(t, mi.ConnectRetry.IsDefault())
	assert.False(t, mi.UseGTID.GTIDSupported)
	assert.Equal(t, infofile.GTIDNo, mi.UseGTID.Get())
	assert.Equal(t, "primary.example", mi.Host.String())
	assert.Equal(t, uint64(1234), mi.LogPos.Get())
}

func TestMasterInfoLoadCompatibility(t *testing.T) {
	base := lines(
		"mysql-bin.000001", "4", "h", "u", "p", "3306",
		"60", "1", "", "", "", "", "", "1", "30.000", "0",
		"a-uuid-left-by-mysql",
		"100000", "", "",
	)

	t.Run("NewerVersionKeys", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		report, err := mi.Load(strings.NewReader(base + lines("connect_retry", "shiny_new_option=7", "END_MARKER")))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Unknown)
		assert.True(t, mi.ConnectRetry.IsDefault())
		assert.False(t, mi.SSL.IsDefault())
	})

	t.Run("StaleTailAfterShrink", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		data := base + lines("using_gtid=2", "END_MARKER", "ignore_domain_ids=1 5", "END_MARKER")
		_, err := mi.Load(strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, infofile.GTIDSlavePos, mi.UseGTID.Get())
		assert.Empty(t, mi.IgnoreDomainIDs.IDs())
	})

	t.Run("DuplicateKeys", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		report, err := mi.Load(strings.NewReader(base + lines("using_gtid=0", "using_gtid=2", "END_MARKER")))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Duplicate)
		assert.Equal(t, infofile.GTIDNo, mi.UseGTID.Get())
	})

	t.Run("NoSentinel", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		_, err := mi.Load(strings.NewReader(base + lines("connect_retry")))
		assert.ErrorIs(t, err, infofile.ErrMissingSentinel)
	})

	t.Run("TruncatedPositional", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		_, err := mi.Load(strings.NewReader(lines("mysql-bin.000001", "4", "h")))
		assert.ErrorIs(t, err, infofile.ErrTruncated)
	})

	t.Run("BadBoolean", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		bad := strings.Replace(base, "\n60\n1\n", "\n60\nyes\n", 1)
		_, err := mi.Load(strings.NewReader(bad + lines("END_MARKER")))
		assert.ErrorIs(t, err, infofile.ErrMalformedLine)

		var fe *infofile.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "ssl", fe.Field)
	})

	t.Run("HostTooLong", func(t *testing.T) {
		mi := NewMasterInfo(nil, IDArrays{})
		long := strings.Repeat("h", infofile.HostCapacity)
		data := strings.Replace(base, "\nh\n", "\n"+long+"\n", 1)
		_, err := mi.Load(strings.NewReader(data + lines("END_MARKER")))
		assert.ErrorIs(t, err, infofile.ErrCapacityExceeded)
	})
}

func TestRelayLogInfoRoundTrip(t *testing.T) {
	ri := NewRelayLogInfo()
	ri.RelayLogFile.Set("./relay-bin.000002")
	ri.RelayLogPos.Set(4)
	ri.MasterLogFile.Set("mysql-bin.000009")
	ri.MasterLogPos.Set(1<<40 + 1)
	ri.SQLDelay.Set(3600)

	var buf bytes.Buffer
	require.NoError(t, ri.Save(&buf))
	assert.Equal(t, lines("./relay-bin.000002", "4", "mysql-bin.000009", "1099511627777", "3600"), buf.String())

	loaded := NewRelayLogInfo()
	require.NoError(t, loaded.Load(strings.NewReader(buf.String()+"leftover\n")))
	assert.Equal(t, *ri, *loaded)

	err := NewRelayLogInfo().Load(strings.NewReader(lines("./relay-bin.000002", "-4")))
	assert.ErrorIs(t, err, infofile.ErrMalformedLine)
}
