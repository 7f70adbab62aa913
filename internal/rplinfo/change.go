package rplinfo

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"grimm.is/rplinfo/internal/infofile"
)

// ErrConflictingDomainFilters is returned when a change would leave both
// domain ID filters non-empty.
var ErrConflictingDomainFilters = errors.New("do_domain_ids and ignore_domain_ids are mutually exclusive")

// ErrInvalidGTIDMode is returned for a using_gtid value outside the enum.
var ErrInvalidGTIDMode = errors.New("invalid using_gtid mode")

// Setting is one defaultable option of a ChangeRequest. A nil *Setting
// leaves the field alone; Default resets it to DEFAULT.
type Setting[T any] struct {
	Value   T
	Default bool
}

// To returns a Setting that assigns v.
func To[T any](v T) *Setting[T] { return &Setting[T]{Value: v} }

// Default returns a Setting that resets the field to DEFAULT.
func Default[T any]() *Setting[T] { return &Setting[T]{Default: true} }

// ChangeRequest is a CHANGE MASTER statement after parsing. Nil members are
// not part of the statement.
type ChangeRequest struct {
	Host     *string
	User     *string
	Password *string
	Port     *uint32
	LogFile  *string
	LogPos   *uint64

	ConnectRetry        *Setting[uint32]
	RetryCount          *Setting[uint64]
	SSL                 *Setting[bool]
	SSLVerifyServerCert *Setting[bool]
	SSLCA               *Setting[string]
	SSLCAPath           *Setting[string]
	SSLCert             *Setting[string]
	SSLCipher           *Setting[string]
	SSLKey              *Setting[string]
	SSLCRL              *Setting[string]
	SSLCRLPath          *Setting[string]
	// HeartbeatPeriod is in milliseconds.
	HeartbeatPeriod *Setting[uint32]
	UseGTID         *Setting[infofile.GTIDMode]

	IgnoreServerIDs *[]uint32
	DoDomainIDs     *[]uint32
	IgnoreDomainIDs *[]uint32
}

// Validate reports problems that do not depend on the current record.
func (c *ChangeRequest) Validate() error {
	if c.UseGTID != nil && !c.UseGTID.Default && !c.UseGTID.Value.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidGTIDMode, c.UseGTID.Value)
	}
	if c.DoDomainIDs != nil && c.IgnoreDomainIDs != nil &&
		len(*c.DoDomainIDs) > 0 && len(*c.IgnoreDomainIDs) > 0 {
		return ErrConflictingDomainFilters
	}
	for _, o := range c.stringOptions() {
		if strings.ContainsRune(o.value, '\n') {
			return fmt.Errorf("%s: %w: value contains a newline", o.name, infofile.ErrMalformedLine)
		}
	}
	return nil
}

type stringOption struct {
	name  string
	value string
}

// stringOptions lists the string values the request assigns. Each is stored
// on a line of its own.
func (c *ChangeRequest) stringOptions() []stringOption {
	var out []stringOption
	for _, p := range []struct {
		name string
		v    *string
	}{
		{"master_host", c.Host},
		{"master_user", c.User},
		{"master_password", c.Password},
		{"master_log_file", c.LogFile},
	} {
		if p.v != nil {
			out = append(out, stringOption{p.name, *p.v})
		}
	}
	for _, p := range []struct {
		name string
		s    *Setting[string]
	}{
		{"ssl_ca", c.SSLCA},
		{"ssl_capath", c.SSLCAPath},
		{"ssl_cert", c.SSLCert},
		{"ssl_cipher", c.SSLCipher},
		{"ssl_key", c.SSLKey},
		{"ssl_crl", c.SSLCRL},
		{"ssl_crlpath", c.SSLCRLPath},
	} {
		if p.s != nil && !p.s.Default {
			out = append(out, stringOption{p.name, p.s.Value})
		}
	}
	return out
}

// Apply merges c into mi. Nothing is changed when the request is invalid.
func (mi *MasterInfo) Apply(c *ChangeRequest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	do, ignore := mi.DoDomainIDs.IDs(), mi.IgnoreDomainIDs.IDs()
	if c.DoDomainIDs != nil {
		do = *c.DoDomainIDs
	}
	if c.IgnoreDomainIDs != nil {
		ignore = *c.IgnoreDomainIDs
	}
	if len(do) > 0 && len(ignore) > 0 {
		return ErrConflictingDomainFilters
	}

	assignString(&mi.Host, c.Host)
	assignString(&mi.User, c.User)
	assignString(&mi.Password, c.Password)
	assignString(&mi.LogFile, c.LogFile)
	if c.Port != nil {
		mi.Port.Set(*c.Port)
	}
	if c.LogPos != nil {
		mi.LogPos.Set(*c.LogPos)
	}

	applyInt(&mi.ConnectRetry, c.ConnectRetry)
	applyInt(&mi.RetryCount, c.RetryCount)
	applyBool(&mi.SSL, c.SSL)
	applyBool(&mi.SSLVerifyServerCert, c.SSLVerifyServerCert)
	applyPath(&mi.SSLCA, c.SSLCA)
	applyPath(&mi.SSLCAPath, c.SSLCAPath)
	applyPath(&mi.SSLCert, c.SSLCert)
	applyPath(&mi.SSLCipher, c.SSLCipher)
	applyPath(&mi.SSLKey, c.SSLKey)
	applyPath(&mi.SSLCRL, c.SSLCRL)
	applyPath(&mi.SSLCRLPath, c.SSLCRLPath)

	if s := c.HeartbeatPeriod; s != nil {
		if s.Default {
			_ = mi.HeartbeatPeriod.SetDefault()
		} else {
			mi.HeartbeatPeriod.SetMillis(s.Value)
		}
	}
	if s := c.UseGTID; s != nil {
		if s.Default {
			_ = mi.UseGTID.SetDefault()
		} else {
			mi.UseGTID.Set(s.Value)
		}
	}

	if c.IgnoreServerIDs != nil {
		mi.IgnoreServerIDs.Set(normalizeIDs(*c.IgnoreServerIDs))
	}
	if c.DoDomainIDs != nil {
		mi.DoDomainIDs.Set(normalizeIDs(*c.DoDomainIDs))
	}
	if c.IgnoreDomainIDs != nil {
		mi.IgnoreDomainIDs.Set(normalizeIDs(*c.IgnoreDomainIDs))
	}
	return nil
}

func assignString(f *infofile.StringField, v *string) {
	if v != nil {
		f.Set(*v)
	}
}

func applyInt[I infofile.Integer](f *infofile.OptionalIntField[I], s *Setting[I]) {
	switch {
	case s == nil:
	case s.Default:
		_ = f.SetDefault()
	default:
		f.Set(s.Value)
	}
}

func applyBool(f *infofile.BoolField, s *Setting[bool]) {
	switch {
	case s == nil:
	case s.Default:
		_ = f.SetDefault()
	default:
		f.Set(s.Value)
	}
}

func applyPath(f *infofile.PathField, s *Setting[string]) {
	switch {
	case s == nil:
	case s.Default:
		_ = f.SetDefault()
	default:
		f.Set(s.Value)
	}
}

// normalizeIDs sorts and deduplicates an ID list so that lookups can use
// binary search and saved files are stable.
func normalizeIDs(ids []uint32) []uint32 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
