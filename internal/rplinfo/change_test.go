package rplinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rplinfo/internal/infofile"
)

func ptr[T any](v T) *T { return &v }

func TestApplyChangeRequest(t *testing.T) {
	opts := NewOptions()
	mi := newPrimary(opts)

	err := mi.Apply(&ChangeRequest{
		Host:            ptr("replica-src"),
		Port:            ptr(uint32(3310)),
		ConnectRetry:    To(uint32(15)),
		SSL:             To(false),
		SSLCA:           To(""),
		HeartbeatPeriod: To(uint32(750)),
		UseGTID:         To(infofile.GTIDNo),
		IgnoreServerIDs: ptr([]uint32{9, 3, 9, 1}),
	})
	require.NoError(t, err)

	assert.Equal(t, "replica-src", mi.Host.String())
	assert.Equal(t, uint32(3310), mi.Port.Get())
	assert.Equal(t, "repl", mi.User.String(), "unset members are left alone")
	assert.Equal(t, uint32(15), mi.ConnectRetry.Get())
	assert.False(t, mi.SSL.Get())
	assert.False(t, mi.SSLCA.IsDefault())
	assert.Equal(t, "", mi.SSLCA.Get())
	assert.True(t, mi.SSLCAPath.IsDefault())
	assert.Equal(t, "0.750", infofile.FormatSeconds(mi.HeartbeatPeriod.Millis()))
	assert.Equal(t, infofile.GTIDNo, mi.UseGTID.Get())
	assert.Equal(t, []uint32{1, 3, 9}, mi.IgnoreServerIDs.IDs())

	err = mi.Apply(&ChangeRequest{
		ConnectRetry:    Default[uint32](),
		SSL:             Default[bool](),
		SSLCA:           Default[string](),
		HeartbeatPeriod: Default[uint32](),
		UseGTID:         Default[infofile.GTIDMode](),
	})
	require.NoError(t, err)
	assert.True(t, mi.ConnectRetry.IsDefault())
	assert.True(t, mi.SSL.IsDefault())
	assert.True(t, mi.SSLCA.IsDefault())
	assert.True(t, mi.HeartbeatPeriod.IsDefault())
	assert.True(t, mi.UseGTID.IsDefault())
	assert.Equal(t, uint32(30000), mi.HeartbeatPeriod.Millis())
}

func TestApplyRejectsConflicts(t *testing.T) {
	mi := newPrimary(NewOptions())
	require.NoError(t, mi.Apply(&ChangeRequest{DoDomainIDs: ptr([]uint32{1, 2})}))

	err := mi.Apply(&ChangeRequest{
		Host:            ptr("elsewhere"),
		IgnoreDomainIDs: ptr([]uint32{3}),
	})
	assert.ErrorIs(t, err, ErrConflictingDomainFilters)
	assert.Equal(t, "primary.example", mi.Host.String(), "a rejected request changes nothing")
	assert.Empty(t, mi.IgnoreDomainIDs.IDs())

	// Clearing one side in the same request is allowed.
	err = mi.Apply(&ChangeRequest{
		DoDomainIDs:     ptr([]uint32{}),
		IgnoreDomainIDs: ptr([]uint32{3}),
	})
	require.NoError(t, err)
	assert.Empty(t, mi.DoDomainIDs.IDs())
	assert.Equal(t, []uint32{3}, mi.IgnoreDomainIDs.IDs())

	err = mi.Apply(&ChangeRequest{UseGTID: To(infofile.GTIDMode(5))})
	assert.ErrorIs(t, err, ErrInvalidGTIDMode)

	for _, req := range []*ChangeRequest{
		{Host: ptr("evil\nhost")},
		{Password: ptr("pass\n")},
		{LogFile: ptr("mysql-bin\n000004")},
		{SSLKey: To("/etc/key\n.pem")},
	} {
		err = mi.Apply(req)
		assert.ErrorIs(t, err, infofile.ErrMalformedLine)
	}
	assert.Equal(t, "primary.example", mi.Host.String())
	assert.Equal(t, "mysql-bin.000003", mi.LogFile.String())
	assert.True(t, mi.SSLKey.IsDefault())
}

func TestOptionsHeartbeatFallback(t *testing.T) {
	opts := NewOptions()
	assert.Equal(t, uint32(30000), opts.HeartbeatPeriodMillis())

	s := opts.Settings()
	s.NetTimeout = 1
	opts.Apply(s)
	assert.Equal(t, uint32(500), opts.HeartbeatPeriodMillis())

	s.NetTimeout = 1 << 31
	opts.Apply(s)
	assert.Equal(t, uint32(infofile.MaxHeartbeatMillis), opts.HeartbeatPeriodMillis())

	zero := uint32(0)
	s.HeartbeatPeriod = &zero
	opts.Apply(s)
	assert.Equal(t, uint32(0), opts.HeartbeatPeriodMillis())
}

func TestStatus(t *testing.T) {
	mi := newPrimary(NewOptions())
	ri := NewRelayLogInfo()
	ri.RelayLogFile.Set("relay-bin.000001")
	ri.MasterLogPos.Set(99)

	st := NewStatus(mi, ri)
	assert.Equal(t, "primary.example", st.MasterHost)
	assert.Equal(t, "30.000", st.HeartbeatPeriod)
	assert.Equal(t, "Slave_Pos", st.UsingGTID)
	assert.Equal(t, "relay-bin.000001", st.RelayLogFile)
	assert.Equal(t, uint64(99), st.ExecMasterLogPos)
	assert.Contains(t, st.Defaults, "using_gtid")
	assert.NotContains(t, st.Defaults, "do_domain_ids")
}
