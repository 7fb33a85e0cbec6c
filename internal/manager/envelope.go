package manager

import (
	"fmt"

	"github.com/roach88/stash/internal/ir"
)

// Envelope keys.
const (
	keyFields       = "fields"
	keyFlags        = "flags"
	keyInfo         = "info"
	keyKind         = "kind"
	keyPersistentID = "persistent_id"
	keySecondaryID  = "secondary_id"
	keyVersion      = "version"
)

// Envelope builds the persisted form of r:
//
//	{"fields":{...},"flags":N,"info":{...},"kind":"...","persistent_id":N,"secondary_id":N,"version":1}
//
// flags, info, secondary_id and fields are omitted when empty.
func Envelope(kind string, r Record) (ir.Object, error) {
	b := r.Meta()
	env := ir.Object{
		keyKind:         ir.String(kind),
		keyPersistentID: ir.Int(b.persistentID),
		keyVersion:      ir.Int(ir.EnvelopeVersion),
	}

	fields, err := r.MarshalFields()
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	if len(fields) > 0 {
		env[keyFields] = fields
	}
	if b.Flags != 0 {
		env[keyFlags] = ir.Int(int64(b.Flags))
	}
	if b.SecondaryID != 0 {
		env[keySecondaryID] = ir.Int(b.SecondaryID)
	}
	if !b.Info.IsZero() {
		info := ir.Object{}
		if b.Info.Name != "" {
			info["name"] = ir.String(b.Info.Name)
		}
		if b.Info.Summary != "" {
			info["summary"] = ir.String(b.Info.Summary)
		}
		if b.Info.Memo != "" {
			info["memo"] = ir.String(b.Info.Memo)
		}
		env[keyInfo] = info
	}
	return env, nil
}

// populate fills a detached record from an envelope. A zero or missing
// persistent id falls back to requestedID.
func populate(kind string, r Record, env ir.Object, requestedID int64) error {
	if k, ok := env[keyKind]; ok {
		s, isString := k.(ir.String)
		if !isString || string(s) != kind {
			return fmt.Errorf("envelope kind %v, want %q", k, kind)
		}
	}
	if v, ok := env.Int64(keyVersion); ok && v > ir.EnvelopeVersion {
		return fmt.Errorf("envelope version %d is newer than %d", v, ir.EnvelopeVersion)
	}

	b := r.Meta()
	b.persistentID = requestedID
	if id, ok := env.Int64(keyPersistentID); ok && id != 0 {
		b.persistentID = id
	}
	b.SecondaryID, _ = env.Int64(keySecondaryID)
	flags, _ := env.Int64(keyFlags)
	b.Flags = uint64(flags)

	info := env.Sub(keyInfo)
	b.Info = Info{
		Name:    info.Str("name"),
		Summary: info.Str("summary"),
		Memo:    info.Str("memo"),
	}

	fields := env.Sub(keyFields)
	if fields == nil {
		fields = ir.Object{}
	}
	if err := r.UnmarshalFields(fields); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	return nil
}
