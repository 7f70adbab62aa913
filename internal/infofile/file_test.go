package infofile

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOptions struct {
	retry  uint32
	ssl    bool
	ca     string
	mode   GTIDMode
	period uint32
}

type testRecord struct {
	LogFile StringField
	LogPos  IntField[uint64]
	Retry   OptionalIntField[uint32]
	SSL     BoolField
	CA      PathField
	Period  HeartbeatField
	Mode    GTIDModeField
	Domains IDListField
}

func newTestRecord(opts *testOptions, domains *[]uint32) *testRecord {
	return &testRecord{
		LogFile: NewStringField(PathCapacity),
		Retry:   NewOptionalIntField(func() uint32 { return opts.retry }),
		SSL:     NewBoolField(func() bool { return opts.ssl }),
		CA:      NewPathField(PathCapacity, func() string { return opts.ca }),
		Period:  NewHeartbeatField(func() uint32 { return opts.period }),
		Mode:    NewGTIDModeField(func() GTIDMode { return opts.mode }),
		Domains: NewIDListField(domains),
	}
}

var testLayout = Layout[testRecord]{
	Slot("log_file", func(r *testRecord) Field { return &r.LogFile }),
	Slot("log_pos", func(r *testRecord) Field { return &r.LogPos }),
	Slot("retry", func(r *testRecord) Field { return &r.Retry }),
	Retired[testRecord]("uuid"),
	Slot("ssl", func(r *testRecord) Field { return &r.SSL }),
	Slot("ca", func(r *testRecord) Field { return &r.CA }),
	Slot("period", func(r *testRecord) Field { return &r.Period }),
}

var testExtension = NewExtension(
	DefaultKey("retry", func(r *testRecord) Field { return &r.Retry }),
	DefaultKey("ssl", func(r *testRecord) Field { return &r.SSL }),
	DefaultKey("ca", func(r *testRecord) Field { return &r.CA }),
	DefaultKey("period", func(r *testRecord) Field { return &r.Period }),
	ValueKey("mode", func(r *testRecord) Field { return &r.Mode }),
	ValueKey("domains", func(r *testRecord) Field { return &r.Domains }),
)

func saveRecord(rec *testRecord) string {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	SavePositional(w, rec, testLayout)
	SaveExtension(w, rec, testExtension)
	w.Flush()
	return buf.String()
}

func loadRecord(rec *testRecord, data string) (ExtensionReport, error) {
	r := bufio.NewReader(strings.NewReader(data))
	if err := LoadPositional(r, rec, testLayout); err != nil {
		return ExtensionReport{}, err
	}
	return LoadExtension(r, rec, testExtension)
}

func TestVerifyRegistry(t *testing.T) {
	opts := &testOptions{}
	require.NoError(t, VerifyRegistry(newTestRecord(opts, nil), testLayout, testExtension))

	missing := NewExtension(
		DefaultKey("retry", func(r *testRecord) Field { return &r.Retry }),
	)
	err := VerifyRegistry(newTestRecord(opts, nil), testLayout, missing)
	assert.ErrorIs(t, err, ErrRegistryMismatch)

	orphan := NewExtension(
		DefaultKey("mode", func(r *testRecord) Field { return &r.Mode }),
	)
	err = VerifyRegistry(newTestRecord(opts, nil), Layout[testRecord]{}, orphan)
	assert.ErrorIs(t, err, ErrRegistryMismatch)

	nilRef := NewExtension(DefaultKey[testRecord]("retry", nil))
	err = VerifyRegistry(newTestRecord(opts, nil), Layout[testRecord]{}, nilRef)
	assert.ErrorIs(t, err, ErrRegistryMismatch)
}

func TestNewExtensionPanicsOnReservedKey(t *testing.T) {
	assert.Panics(t, func() {
		NewExtension(DefaultKey(EndMarker, func(r *testRecord) Field { return &r.SSL }))
	})
	assert.Panics(t, func() {
		NewExtension(
			DefaultKey("ssl", func(r *testRecord) Field { return &r.SSL }),
			DefaultKey("ssl", func(r *testRecord) Field { return &r.SSL }),
		)
	})
}

func TestSaveDefaults(t *testing.T) {
	opts := &testOptions{retry: 60, ssl: true, ca: "", mode: GTIDDefault, period: 30000}
	rec := newTestRecord(opts, nil)
	rec.LogFile.Set("bin.000001")
	rec.LogPos.Set(4)

	want := strings.Join([]string{
		"bin.000001",
		"4",
		"60",
		"",
		"1",
		"",
		"30.000",
		"retry",
		"ssl",
		"ca",
		"period",
		"mode",
		"domains=0",
		EndMarker,
		"",
	}, "\n")
	assert.Equal(t, want, saveRecord(rec))
}

func TestRoundTrip(t *testing.T) {
	opts := &testOptions{retry: 60, ssl: true, mode: GTIDDefault, period: 30000}
	domains := []uint32{7, 3, 9}
	rec := newTestRecord(opts, &domains)
	rec.LogFile.Set("bin.000042")
	rec.LogPos.Set(1<<40 + 17)
	rec.Retry.Set(5)
	rec.SSL.Set(false)
	rec.CA.Set("")
	rec.Period.SetMillis(1500)
	rec.Mode.Set(GTIDCurrentPos)

	data := saveRecord(rec)

	var loadedDomains []uint32
	loaded := newTestRecord(opts, &loadedDomains)
	report, err := loadRecord(loaded, data)
	require.NoError(t, err)
	assert.Zero(t, report.Skipped())

	assert.Equal(t, "bin.000042", loaded.LogFile.String())
	assert.Equal(t, uint64(1<<40+17), loaded.LogPos.Get())
	assert.Equal(t, uint32(5), loaded.Retry.Get())
	assert.False(t, loaded.Retry.IsDefault())
	assert.False(t, loaded.SSL.Get())
	assert.False(t, loaded.CA.IsDefault())
	assert.Equal(t, "", loaded.CA.Get())
	assert.Equal(t, uint32(1500), loaded.Period.Millis())
	assert.Equal(t, GTIDCurrentPos, loaded.Mode.Get())
	assert.Equal(t, []uint32{7, 3, 9}, loadedDomains)

	assert.Equal(t, data, saveRecord(loaded), "save is idempotent")
}

func TestRoundTripDefaults(t *testing.T) {
	opts := &testOptions{retry: 60, ssl: true, ca: "/ca.pem", mode: GTIDDefault, period: 30000}
	rec := newTestRecord(opts, nil)
	data := saveRecord(rec)

	loaded := newTestRecord(opts, nil)
	// Put every optional field in SET state so the block has to reset them.
	loaded.Retry.Set(1)
	loaded.SSL.Set(false)
	loaded.CA.Set("x")
	loaded.Period.SetMillis(1)
	loaded.Mode.Set(GTIDNo)

	report, err := loadRecord(loaded, data)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Defaulted)

	assert.True(t, loaded.Retry.IsDefault())
	assert.True(t, loaded.SSL.IsDefault())
	assert.True(t, loaded.CA.IsDefault())
	assert.True(t, loaded.Period.IsDefault())
	assert.True(t, loaded.Mode.IsDefault())
	assert.Equal(t, "/ca.pem", loaded.CA.Get())
}

func TestDefaultKeyIdempotence(t *testing.T) {
	opts := &testOptions{}
	rec := newTestRecord(opts, nil)
	require.NoError(t, rec.SSL.SetDefault())

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	onlySSL := NewExtension(DefaultKey("ssl", func(r *testRecord) Field { return &r.SSL }))
	SaveExtension(w, rec, onlySSL)
	w.Flush()
	assert.Equal(t, "ssl\n"+EndMarker+"\n", buf.String())

	rec.SSL.Set(true)
	_, err := LoadExtension(bufio.NewReader(&buf), rec, onlySSL)
	require.NoError(t, err)
	assert.True(t, rec.SSL.IsDefault())
}

func TestLoadExtensionCompatibility(t *testing.T) {
	opts := &testOptions{retry: 60}

	t.Run("UnknownKey", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		report, err := LoadExtension(reader("from_the_future=1\n"+EndMarker+"\n"), rec, testExtension)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Unknown)
		assert.True(t, rec.Retry.IsDefault())
		assert.True(t, rec.SSL.IsDefault())
		assert.True(t, rec.Mode.IsDefault())
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		report, err := LoadExtension(reader("mode=1\nmode=2\nmode\n"+EndMarker+"\n"), rec, testExtension)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Duplicate)
		assert.Equal(t, GTIDCurrentPos, rec.Mode.Get())
	})

	t.Run("OverlongKey", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		long := strings.Repeat("k", testExtension.MaxKeyLen()+1)
		report, err := LoadExtension(reader(long+"=1\n"+EndMarker+"\n"), rec, testExtension)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Overlong)
	})

	t.Run("TrailingGarbage", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader(EndMarker+"\nretry=12\nleft over from a longer file"), rec, testExtension)
		require.NoError(t, err)
		assert.True(t, rec.Retry.IsDefault())
	})

	t.Run("KeyWithValueForDefaultableField", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader("retry=7\n"+EndMarker+"\n"), rec, testExtension)
		require.NoError(t, err)
		assert.Equal(t, uint32(7), rec.Retry.Get())
	})

	t.Run("EmptyPathValue", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader("ca=\n"+EndMarker+"\n"), rec, testExtension)
		require.NoError(t, err)
		assert.False(t, rec.CA.IsDefault())
		assert.Equal(t, "", rec.CA.Get())
	})

	t.Run("MissingSentinel", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader("ssl\n"), rec, testExtension)
		assert.ErrorIs(t, err, ErrMissingSentinel)
	})

	t.Run("BadValue", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader("mode=7\n"+EndMarker+"\n"), rec, testExtension)
		assert.ErrorIs(t, err, ErrMalformedLine)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "mode", fe.Field)
	})

	t.Run("BareKeyOnMandatoryField", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		_, err := LoadExtension(reader("domains\n"+EndMarker+"\n"), rec, testExtension)
		assert.ErrorIs(t, err, ErrNoDefault)
	})
}

func TestLoadPositionalFailure(t *testing.T) {
	opts := &testOptions{}

	t.Run("Truncated", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		err := LoadPositional(reader("bin.000001\n4\n"), rec, testLayout)
		assert.ErrorIs(t, err, ErrTruncated)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "retry", fe.Field)
	})

	t.Run("Malformed", func(t *testing.T) {
		rec := newTestRecord(opts, nil)
		err := LoadPositional(reader("bin.000001\nfour\n"), rec, testLayout)
		assert.ErrorIs(t, err, ErrMalformedLine)
	})
}
