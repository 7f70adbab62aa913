package rplinfo

import (
	"math"
	"sync"

	"grimm.is/rplinfo/internal/infofile"
)

// Option defaults, matching a freshly installed server.
const (
	DefaultConnectRetry  uint32 = 60
	DefaultRetryCount    uint64 = 100000
	DefaultNetTimeout    uint32 = 60
	DefaultSSL                  = true
	DefaultSSLVerifyCert        = true
	DefaultUseGTID              = infofile.GTIDDefault
)

// Settings is a plain snapshot of the process-wide replication options.
type Settings struct {
	ConnectRetry        uint32
	RetryCount          uint64
	SSL                 bool
	SSLVerifyServerCert bool
	SSLCA               string
	SSLCAPath           string
	SSLCert             string
	SSLCipher           string
	SSLKey              string
	SSLCRL              string
	SSLCRLPath          string
	UseGTID             infofile.GTIDMode

	// HeartbeatPeriod is the configured period in milliseconds. Nil means
	// derive it from NetTimeout.
	HeartbeatPeriod *uint32
	// NetTimeout is slave_net_timeout in seconds.
	NetTimeout uint32
}

// DefaultSettings returns the settings of an unconfigured server.
func DefaultSettings() Settings {
	return Settings{
		ConnectRetry:        DefaultConnectRetry,
		RetryCount:          DefaultRetryCount,
		SSL:                 DefaultSSL,
		SSLVerifyServerCert: DefaultSSLVerifyCert,
		UseGTID:             DefaultUseGTID,
		NetTimeout:          DefaultNetTimeout,
	}
}

// Options holds the process-wide fallbacks of every defaultable field.
// It is safe for concurrent use; records read it through closures.
type Options struct {
	mu sync.RWMutex
	s  Settings
}

// NewOptions returns Options initialised to DefaultSettings.
func NewOptions() *Options {
	return &Options{s: DefaultSettings()}
}

// Apply replaces all settings at once.
func (o *Options) Apply(s Settings) {
	if s.HeartbeatPeriod != nil {
		v := *s.HeartbeatPeriod
		s.HeartbeatPeriod = &v
	}
	o.mu.Lock()
	o.s = s
	o.mu.Unlock()
}

// Settings returns a copy of the current settings.
func (o *Options) Settings() Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.s
	if s.HeartbeatPeriod != nil {
		v := *s.HeartbeatPeriod
		s.HeartbeatPeriod = &v
	}
	return s
}

func (o *Options) read() Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.s
}

func (o *Options) ConnectRetry() uint32       { return o.read().ConnectRetry }
func (o *Options) RetryCount() uint64         { return o.read().RetryCount }
func (o *Options) SSL() bool                  { return o.read().SSL }
func (o *Options) SSLVerifyServerCert() bool  { return o.read().SSLVerifyServerCert }
func (o *Options) SSLCA() string              { return o.read().SSLCA }
func (o *Options) SSLCAPath() string          { return o.read().SSLCAPath }
func (o *Options) SSLCert() string            { return o.read().SSLCert }
func (o *Options) SSLCipher() string          { return o.read().SSLCipher }
func (o *Options) SSLKey() string             { return o.read().SSLKey }
func (o *Options) SSLCRL() string             { return o.read().SSLCRL }
func (o *Options) SSLCRLPath() string         { return o.read().SSLCRLPath }
func (o *Options) UseGTID() infofile.GTIDMode { return o.read().UseGTID }
func (o *Options) NetTimeout() uint32         { return o.read().NetTimeout }

// HeartbeatPeriodMillis returns the configured heartbeat period, or half of
// the network timeout when none is configured.
func (o *Options) HeartbeatPeriodMillis() uint32 {
	s := o.read()
	if s.HeartbeatPeriod != nil {
		return *s.HeartbeatPeriod
	}
	ms := uint64(s.NetTimeout) * 500
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}
