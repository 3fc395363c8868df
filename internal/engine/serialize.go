package engine

import (
	"fmt"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/adblock-engine/internal/bucket"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/metadata"
	"github.com/bnema/adblock-engine/internal/resources"
)

const (
	// ErrVersionMismatch is returned when deserializing data written by
	// another version of the format.
	ErrVersionMismatch errors.Error = "serialized engine version mismatch"

	// ErrChecksumMismatch is returned when deserializing corrupted data.
	ErrChecksumMismatch errors.Error = "serialized engine checksum mismatch"
)

// SerializedSize returns the number of bytes Serialize writes.
func (e *Engine) SerializedSize() (n int) {
	n = dataview.SizeOfUint16 + e.conf.SerializedSize() + e.resources.SerializedSize()

	n += dataview.SizeOfUint16
	for name, checksum := range e.lists {
		n += dataview.SizeOfASCII(name) + dataview.SizeOfASCII(checksum)
	}

	n += e.preprocessors.SerializedSize() +
		e.importants.SerializedSize() +
		e.redirects.SerializedSize() +
		e.filters.SerializedSize() +
		e.exceptions.SerializedSize() +
		e.csp.SerializedSize() +
		e.cosmetics.SerializedSize() +
		e.hideExceptions.SerializedSize() +
		e.htmlFilters.SerializedSize()

	n += dataview.SizeOfBool
	if e.metadata != nil {
		n += e.metadata.SerializedSize()
	}

	if e.conf.IntegrityCheck {
		n += dataview.SizeOfUint32
	}

	return n
}

// Serialize returns the binary form of e.  Engines with equal filters and
// configuration serialize to equal bytes.
func (e *Engine) Serialize() (data []byte) {
	// The version and configuration are always written uncompressed.
	v := dataview.New(e.SerializedSize(), nil)
	v.PushUint16(Version)
	e.conf.Serialize(v)
	v.EnableCompression(e.bconf.Compression)

	e.resources.Serialize(v)

	names := e.LoadedLists()
	v.PushUint16(uint16(len(names)))
	for _, name := range names {
		v.PushASCII(name)
		v.PushASCII(e.lists[name])
	}

	e.preprocessors.Serialize(v)
	e.importants.Serialize(v)
	e.redirects.Serialize(v)
	e.filters.Serialize(v)
	e.exceptions.Serialize(v)
	e.csp.Serialize(v)
	e.cosmetics.Serialize(v)
	e.hideExceptions.Serialize(v)
	e.htmlFilters.Serialize(v)

	v.PushBool(e.metadata != nil)
	if e.metadata != nil {
		e.metadata.Serialize(v)
	}

	if e.conf.IntegrityCheck {
		v.PushUint32(v.Checksum())
	}

	return slices.Clip(v.Bytes())
}

// Deserialize reads an engine written by Serialize.  Only the Logger and
// HostnameParser fields of opts are used, opts may be nil.  data must not be
// modified afterwards since filters are decoded from it lazily.
func Deserialize(data []byte, opts *Options) (e *Engine, err error) {
	if opts == nil {
		opts = &Options{}
	}

	v := dataview.FromBytes(data, nil)
	if got := v.GetUint16(); got != Version {
		if err = v.Err(); err != nil {
			return nil, fmt.Errorf("reading version: %w", err)
		}

		return nil, fmt.Errorf("%w, expected %d but got %d", ErrVersionMismatch, Version, got)
	}

	conf := DeserializeConfig(v)
	if err = v.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if conf.IntegrityCheck {
		if err = verifyChecksum(v); err != nil {
			return nil, err
		}
	}

	e = newEmpty(opts.Logger, conf, opts.HostnameParser)
	v.EnableCompression(e.bconf.Compression)

	e.resources, err = resources.Deserialize(v)
	if err != nil {
		return nil, fmt.Errorf("reading resources: %w", err)
	}

	n := int(v.GetUint16())
	for range n {
		name := v.GetASCII()
		e.lists[name] = v.GetASCII()
	}

	e.preprocessors = bucket.DeserializePreprocessorBucket(v)
	e.importants = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.redirects = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.filters = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.exceptions = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.csp = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.cosmetics = bucket.DeserializeCosmeticBucket(v, e.bconf)
	e.hideExceptions = bucket.DeserializeNetworkBucket(v, e.bconf)
	e.htmlFilters = bucket.DeserializeHTMLBucket(v, e.bconf)
	if err = v.Err(); err != nil {
		return nil, fmt.Errorf("reading buckets: %w", err)
	}

	if v.GetBool() {
		e.metadata, err = metadata.Deserialize(v)
		if err != nil {
			// Don't wrap the error since it's informative enough as is.
			return nil, err
		}
	}

	if err = v.Err(); err != nil {
		return nil, fmt.Errorf("reading metadata flag: %w", err)
	}

	e.logger.Debug("engine deserialized", "size", len(data), "lists", len(e.lists))

	return e, nil
}

// verifyChecksum compares the checksum stored in the last four bytes of the
// buffer of v to the one of the bytes before it.  The cursor of v is left
// unchanged.
func verifyChecksum(v *dataview.View) (err error) {
	pos := v.Pos()
	defer v.SetPos(pos)

	if v.Len() < pos+dataview.SizeOfUint32 {
		return fmt.Errorf("reading checksum: %w", dataview.ErrTruncated)
	}

	v.SetPos(v.Len() - dataview.SizeOfUint32)
	got := v.Checksum()
	want := v.GetUint32()
	if got != want {
		return fmt.Errorf("%w, expected %d but got %d", ErrChecksumMismatch, want, got)
	}

	return nil
}
