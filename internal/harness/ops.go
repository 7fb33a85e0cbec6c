package harness

import (
	"context"
	"fmt"

	"github.com/roach88/stash/internal/document"
	"github.com/roach88/stash/internal/ir"
	"github.com/roach88/stash/internal/manager"
)

// opFunc runs one operation. The returned object, if any, becomes part of
// the completion's result even when the error is non-nil.
type opFunc func(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error)

// argError reports a malformed scenario step rather than an operation
// outcome; it aborts the run.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func badArg(format string, a ...any) error {
	return &argError{msg: fmt.Sprintf(format, a...)}
}

var operations map[string]opFunc

func init() {
	operations = map[string]opFunc{
		"create":       opCreate,
		"delete":       opDelete,
		"set":          opSet,
		"link":         opLink,
		"ref":          opRef,
		"resolve":      opResolve,
		"sync":         opSync,
		"sync_all":     opSyncAll,
		"unsync_all":   opUnsyncAll,
		"set_current":  opSetCurrent,
		"next":         opNext,
		"prev":         opPrev,
		"mark":         opMark,
		"evict":        opEvict,
		"lookup":       opLookup,
		"save":         opSave,
		"save_all":     opSaveAll,
		"load_all":     opLoadAll,
		"renumber":     opRenumber,
		"defer_sync":   opDeferSync,
		"defer_delete": opDeferDelete,
		"drain":        opDrain,
		"reset":        opReset,
	}
}

func intArg(args ir.Object, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, badArg("%s is required", key)
	}
	n, isInt := v.(ir.Int)
	if !isInt {
		return 0, badArg("%s must be an integer", key)
	}
	return int64(n), nil
}

func stringArg(args ir.Object, key string) (string, error) {
	s, ok := args[key].(ir.String)
	if !ok || s == "" {
		return "", badArg("%s must be a non-empty string", key)
	}
	return string(s), nil
}

func tableArg(args ir.Object) (manager.SyncTable, error) {
	v, ok := args["table"]
	if !ok {
		return manager.SyncTable{}, nil
	}
	obj, isObject := v.(ir.Object)
	if !isObject {
		return manager.SyncTable{}, badArg("table must be a mapping")
	}
	t, err := tableFromObject(obj)
	if err != nil {
		return t, badArg("table: %v", err)
	}
	return t, nil
}

// decodeTable converts a YAML mapping of option names to a SyncTable.
func decodeTable(raw map[string]any) (manager.SyncTable, error) {
	native, err := ir.FromNative(raw)
	if err != nil {
		return manager.SyncTable{}, err
	}
	obj, _ := native.(ir.Object)
	return tableFromObject(obj)
}

func tableFromObject(obj ir.Object) (manager.SyncTable, error) {
	var t manager.SyncTable
	fields := map[string]*bool{
		"content_unsync":           &t.ContentUnsync,
		"resync":                   &t.Resync,
		"runtime_clear":            &t.RuntimeClear,
		"dependency_data_clear":    &t.DependencyDataClear,
		"delete_on_memory_present": &t.DeleteOnMemoryPresent,
	}
	for _, key := range obj.SortedKeys() {
		dst, ok := fields[key]
		if !ok {
			return t, fmt.Errorf("unknown option %q", key)
		}
		b, isBool := obj[key].(ir.Bool)
		if !isBool {
			return t, fmt.Errorf("option %q must be a boolean", key)
		}
		*dst = bool(b)
	}
	return t, nil
}

func opCreate(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	var (
		d   *document.Document
		err error
	)
	if args.Flag("transient") {
		d = h.mgr.Create()
	} else if d, err = h.mgr.CreatePersistent(ctx); err != nil {
		return nil, err
	}
	return ir.Object{
		"persistent_id": ir.Int(d.PersistentID()),
		"runtime_id":    ir.Int(d.RuntimeID()),
	}, nil
}

func opDelete(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.Delete(ctx, d, args.Flag("backing"))
}

func opSet(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	if v, ok := args["data"]; ok {
		data, isObject := v.(ir.Object)
		if !isObject {
			return nil, badArg("data must be a mapping")
		}
		d.Data = data.Clone()
	}
	if _, ok := args["name"]; ok {
		d.Info.Name = args.Str("name")
	}
	if _, ok := args["auxiliary"]; ok {
		d.Auxiliary = args.Flag("auxiliary")
	}
	return nil, nil
}

func opLink(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	to, err := intArg(args, "to")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Link(name, to)
	return nil, nil
}

func opRef(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	to, err := intArg(args, "to")
	if err != nil {
		return nil, err
	}
	ref, ok := h.refs[name]
	if !ok {
		ref = &document.Ref{}
		h.refs[name] = ref
	}
	ref.SetPersistentID(to)
	return ir.Object{"state": ir.String(ref.State().String())}, nil
}

func opResolve(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	ref, ok := h.refs[name]
	if !ok {
		return nil, badArg("unknown reference %q", name)
	}
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	resolveErr := ref.Resolve(ctx, h.mgr, table, args.Flag("forced"))
	return ir.Object{
		"state":  ir.String(ref.State().String()),
		"target": ir.Int(ref.StoredID()),
	}, resolveErr
}

func opSync(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	syncErr := h.mgr.Sync(ctx, d, table)
	broken := ir.Array{}
	for _, name := range d.BrokenLinks() {
		broken = append(broken, ir.String(name))
	}
	return ir.Object{"broken": broken}, syncErr
}

func opSyncAll(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.SyncAll(ctx, table)
}

func opUnsyncAll(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.UnsyncAll(ctx, table)
}

func opSetCurrent(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	if id == 0 {
		h.mgr.ClearCurrent()
		return nil, nil
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.SetCurrent(d)
}

func currentResult(h *Harness, moved bool) ir.Object {
	var id int64
	if cur, ok := h.mgr.Current(); ok {
		id = cur.PersistentID()
	}
	return ir.Object{"moved": ir.Bool(moved), "current": ir.Int(id)}
}

func opNext(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	return currentResult(h, h.mgr.CurrentToNext()), nil
}

func opPrev(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	return currentResult(h, h.mgr.CurrentToPrev()), nil
}

func opMark(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	h.mgr.MarkAllUnneeded(args.Flag("needed"))
	return nil, nil
}

func opEvict(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	return ir.Object{"evicted": ir.Int(h.mgr.EvictUnneeded())}, nil
}

func opLookup(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, ok := h.mgr.LookupByPersistentID(ctx, id, args.Flag("in_memory"))
	out := ir.Object{"found": ir.Bool(ok)}
	if ok {
		out["runtime_id"] = ir.Int(d.RuntimeID())
	}
	return out, nil
}

func opSave(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.Save(ctx, d)
}

func opSaveAll(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	saved, err := h.mgr.SaveAll(ctx)
	return ir.Object{"saved": ir.Int(saved)}, err
}

func opLoadAll(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	loaded, err := h.mgr.LoadAll(ctx)
	return ir.Object{"loaded": ir.Int(loaded)}, err
}

func opRenumber(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	return nil, h.mgr.Renumber(ctx, args.Flag("persist"))
}

func opDeferSync(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.DeferSync(d)
}

func opDeferDelete(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return nil, err
	}
	d, err := h.resident(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, h.mgr.DeferDelete(d)
}

func opDrain(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	return nil, h.mgr.RunDeferredWork(ctx)
}

func opReset(ctx context.Context, h *Harness, args ir.Object) (ir.Object, error) {
	h.mgr.Reset(ctx)
	for _, ref := range h.refs {
		ref.Release()
	}
	return nil, nil
}
