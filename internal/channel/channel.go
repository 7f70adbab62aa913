// Package channel owns the persisted state of replication channels. A
// Channel holds both info records of one connection, the ID lists those
// records borrow, and the lock that serializes every load, save and change.
package channel

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"grimm.is/rplinfo/internal/clock"
	"grimm.is/rplinfo/internal/infofile"
	"grimm.is/rplinfo/internal/logging"
	"grimm.is/rplinfo/internal/metrics"
	"grimm.is/rplinfo/internal/rplinfo"
)

// Channel is one replication connection and its two records.
type Channel struct {
	mu      sync.Mutex
	name    string
	backend Backend
	opts    *rplinfo.Options
	logger  *logging.Logger
	metrics *metrics.Registry

	// Borrowed by master. Only touched with mu held.
	ignoreServerIDs []uint32
	doDomainIDs     []uint32
	ignoreDomainIDs []uint32

	master *rplinfo.MasterInfo
	relay  *rplinfo.RelayLogInfo
}

// Deps are the collaborators shared by all channels of a process.
type Deps struct {
	Backend Backend
	Options *rplinfo.Options
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

func (d Deps) withDefaults() Deps {
	if d.Options == nil {
		d.Options = rplinfo.NewOptions()
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Get()
	}
	return d
}

// New returns a channel with fresh records. Nothing is read until Load.
func New(name string, deps Deps) (*Channel, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errors.New("channel: no backend")
	}
	deps = deps.withDefaults()

	c := &Channel{
		name:    name,
		backend: deps.Backend,
		opts:    deps.Options,
		logger:  deps.Logger.WithComponent("channel").WithChannel(name),
		metrics: deps.Metrics,
		relay:   rplinfo.NewRelayLogInfo(),
	}
	c.master = c.newMasterInfo()
	if err := c.master.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Channel) newMasterInfo() *rplinfo.MasterInfo {
	return rplinfo.NewMasterInfo(c.opts, rplinfo.IDArrays{
		IgnoreServerIDs: &c.ignoreServerIDs,
		DoDomainIDs:     &c.doDomainIDs,
		IgnoreDomainIDs: &c.ignoreDomainIDs,
	})
}

// Name returns the normalized channel name; "" is the default channel.
func (c *Channel) Name() string { return c.name }

// Load reads both records from the backend. A record that was never saved
// is left at its defaults. When a record fails to parse it is replaced by a
// fresh one and the error is returned; the cached GTID capability survives.
func (c *Channel) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return errors.Join(c.loadMaster(), c.loadRelay())
}

func (c *Channel) loadMaster() error {
	data, err := c.backend.Read(c.name, MasterInfo)
	if errors.Is(err, ErrNotExist) {
		c.logger.Debug("no master info saved, using defaults")
		return nil
	}
	if err == nil {
		var report infofile.ExtensionReport
		report, err = c.master.Load(bytes.NewReader(data))
		c.metrics.ObserveExtension(c.name, report)
		if report.Skipped() > 0 {
			c.logger.Debug("skipped extension keys",
				"unknown", report.Unknown, "duplicate", report.Duplicate, "overlong", report.Overlong)
		}
	}
	c.metrics.RecordLoads.WithLabelValues(c.name, MasterInfo.String(), metrics.Result(err)).Inc()
	if err != nil {
		supported := c.master.UseGTID.GTIDSupported
		c.ignoreServerIDs, c.doDomainIDs, c.ignoreDomainIDs = nil, nil, nil
		c.master = c.newMasterInfo()
		c.master.UseGTID.GTIDSupported = supported
		c.logger.Error("master info unreadable, reset to defaults", "error", err)
		return fmt.Errorf("load %s: %w", MasterInfo, err)
	}
	c.metrics.DefaultFields.WithLabelValues(c.name).Set(float64(len(c.master.DefaultKeys())))
	return nil
}

func (c *Channel) loadRelay() error {
	data, err := c.backend.Read(c.name, RelayLogInfo)
	if errors.Is(err, ErrNotExist) {
		c.logger.Debug("no relay log info saved, using defaults")
		return nil
	}
	if err == nil {
		err = c.relay.Load(bytes.NewReader(data))
	}
	c.metrics.RecordLoads.WithLabelValues(c.name, RelayLogInfo.String(), metrics.Result(err)).Inc()
	if err != nil {
		c.relay = rplinfo.NewRelayLogInfo()
		c.logger.Error("relay log info unreadable, reset to defaults", "error", err)
		return fmt.Errorf("load %s: %w", RelayLogInfo, err)
	}
	return nil
}

// Save writes both records.
func (c *Channel) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return errors.Join(c.save(MasterInfo), c.save(RelayLogInfo))
}

// SaveMaster writes only the master info record, as the I/O thread does.
func (c *Channel) SaveMaster() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(MasterInfo)
}

// SaveRelay writes only the relay log info record, as the SQL thread does.
func (c *Channel) SaveRelay() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(RelayLogInfo)
}

func (c *Channel) save(kind Kind) error {
	start := clock.Now()
	data, err := c.marshal(kind)
	if err == nil {
		err = c.backend.Write(c.name, kind, data)
	}
	c.metrics.SaveLatency.WithLabelValues(c.backend.Name()).Observe(clock.Since(start).Seconds())
	c.metrics.RecordSaves.WithLabelValues(c.name, kind.String(), metrics.Result(err)).Inc()
	if err != nil {
		c.logger.Error("save failed", "record", kind.String(), "backend", c.backend.Name(), "error", err)
		return fmt.Errorf("save %s: %w", kind, err)
	}
	c.metrics.LastSave.WithLabelValues(c.name, kind.String()).Set(float64(clock.Now().UnixNano()) / float64(time.Second))
	c.logger.Debug("saved", "record", kind.String(), "bytes", len(data))
	return nil
}

func (c *Channel) marshal(kind Kind) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch kind {
	case MasterInfo:
		err = c.master.Save(&buf)
	case RelayLogInfo:
		err = c.relay.Save(&buf)
	default:
		err = fmt.Errorf("unknown record kind %v", kind)
	}
	return buf.Bytes(), err
}

// Marshal renders a record as it would be saved, without writing it.
func (c *Channel) Marshal(kind Kind) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marshal(kind)
}

// Change applies a CHANGE MASTER request and saves the master info record.
// A rejected request changes nothing and writes nothing.
func (c *Channel) Change(req *rplinfo.ChangeRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.master.Apply(req); err != nil {
		return err
	}
	c.logger.Info("master info changed")
	return c.save(MasterInfo)
}

// Reset puts every defaultable master info field back to DEFAULT and saves.
// It keeps coordinates and credentials, as RESET SLAVE does.
func (c *Channel) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.master.ResetToDefaults()
	c.logger.Info("master info reset to defaults")
	return c.save(MasterInfo)
}

// Update runs fn with exclusive access to both records. Nothing is saved.
func (c *Channel) Update(fn func(mi *rplinfo.MasterInfo, ri *rplinfo.RelayLogInfo) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.master, c.relay)
}

// SetGTIDSupported caches whether the primary understands GTIDs. It
// decides the effective using_gtid of a DEFAULT field.
func (c *Channel) SetGTIDSupported(supported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.master.UseGTID.GTIDSupported = supported
}

// IgnoreServerIDs returns a copy of the ignored server IDs.
func (c *Channel) IgnoreServerIDs() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ignoreServerIDs)
}

// Status snapshots the effective values of both records.
func (c *Channel) Status() rplinfo.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rplinfo.NewStatus(c.master, c.relay)
}

// Remove deletes both records from the backend and resets the channel.
func (c *Channel) Remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.Join(
		c.backend.Remove(c.name, MasterInfo),
		c.backend.Remove(c.name, RelayLogInfo),
	)
	if err != nil {
		return err
	}
	c.ignoreServerIDs, c.doDomainIDs, c.ignoreDomainIDs = nil, nil, nil
	c.master = c.newMasterInfo()
	c.relay = rplinfo.NewRelayLogInfo()
	c.logger.Info("records removed")
	return nil
}
