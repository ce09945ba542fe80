package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/processor"
	"github.com/eventflux-io/engine/internal/core/processor/window"
	"github.com/eventflux-io/engine/internal/core/scheduler"
)

// WindowSpec is the parsed `WINDOW('type', arg1, arg2, ...)` clause (spec
// §4.6 step 3, §6) before it's bound to a physical window implementation —
// args are kept as raw literal text since their shape (int, duration,
// attribute name) depends on which window type they belong to.
type WindowSpec struct {
	Type string
	Args []string
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, "'\"")
}

func (w WindowSpec) argInt(i int) (int, error) {
	if i >= len(w.Args) {
		return 0, errs.New(errs.ValidationFailed, "WINDOW missing argument "+strconv.Itoa(i))
	}
	n, err := strconv.Atoi(strings.TrimSpace(w.Args[i]))
	if err != nil {
		return 0, errs.Wrap(errs.ValidationFailed, "WINDOW argument is not an integer", err)
	}
	return n, nil
}

func (w WindowSpec) argDuration(i int) (time.Duration, error) {
	if i >= len(w.Args) {
		return 0, errs.New(errs.ValidationFailed, "WINDOW missing duration argument "+strconv.Itoa(i))
	}
	raw := unquote(w.Args[i])
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errs.New(errs.ValidationFailed, "WINDOW duration argument is neither a Go duration nor a millisecond count: "+raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (w WindowSpec) argString(i int) (string, error) {
	if i >= len(w.Args) {
		return "", errs.New(errs.ValidationFailed, "WINDOW missing argument "+strconv.Itoa(i))
	}
	return unquote(w.Args[i]), nil
}

func (w WindowSpec) argFloat(i int) (float64, error) {
	if i >= len(w.Args) {
		return 0, errs.New(errs.ValidationFailed, "WINDOW missing argument "+strconv.Itoa(i))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(w.Args[i]), 64)
	if err != nil {
		return 0, errs.Wrap(errs.ValidationFailed, "WINDOW argument is not a number", err)
	}
	return f, nil
}

// BuildWindow constructs the physical window processor WindowSpec names
// (spec §4.2.1 and §6). attrIndex resolves an attribute-name argument (e.g.
// externalTime's timestamp column, session's partition key) against the
// owning stream's schema. queryLabel tags the built window with the
// "query" label its emission-count metrics report under (spec §B domain
// stack), typically the statement's INSERT INTO target name.
func BuildWindow(spec WindowSpec, sched *scheduler.Scheduler, attrIndex func(name string) (int, bool), queryLabel string) (processor.Processor, error) {
	resolveAttr := func(i int) (int, error) {
		name, err := spec.argString(i)
		if err != nil {
			return 0, err
		}
		idx, ok := attrIndex(name)
		if !ok {
			return 0, errs.New(errs.ValidationFailed, "WINDOW references unknown attribute: "+name)
		}
		return idx, nil
	}

	win, err := buildWindowProcessor(spec, sched, resolveAttr)
	if err != nil {
		return nil, err
	}
	if tagger, ok := win.(interface{ SetQueryID(string) }); ok {
		tagger.SetQueryID(queryLabel)
	}
	return win, nil
}

func buildWindowProcessor(spec WindowSpec, sched *scheduler.Scheduler, resolveAttr func(int) (int, error)) (processor.Processor, error) {
	switch strings.ToLower(spec.Type) {
	case "length":
		n, err := spec.argInt(0)
		if err != nil {
			return nil, err
		}
		return window.NewLengthWindow(n), nil

	case "lengthbatch":
		n, err := spec.argInt(0)
		if err != nil {
			return nil, err
		}
		return window.NewLengthBatchWindow(n), nil

	case "time":
		d, err := spec.argDuration(0)
		if err != nil {
			return nil, err
		}
		return window.NewTimeWindow(d, sched), nil

	case "timebatch":
		d, err := spec.argDuration(0)
		if err != nil {
			return nil, err
		}
		return window.NewTimeBatchWindow(d, sched), nil

	case "externaltime":
		idx, err := resolveAttr(0)
		if err != nil {
			return nil, err
		}
		d, err := spec.argDuration(1)
		if err != nil {
			return nil, err
		}
		return window.NewExternalTimeWindow(idx, d.Milliseconds()), nil

	case "session":
		idx, err := resolveAttr(0)
		if err != nil {
			return nil, err
		}
		d, err := spec.argDuration(1)
		if err != nil {
			return nil, err
		}
		return window.NewSessionWindow(idx, d, sched), nil

	case "sort":
		n, err := spec.argInt(0)
		if err != nil {
			return nil, err
		}
		idx, err := resolveAttr(1)
		if err != nil {
			return nil, err
		}
		dirStr, _ := spec.argString(2)
		dir := window.Ascending
		if strings.EqualFold(dirStr, "desc") {
			dir = window.Descending
		}
		return window.NewSortWindow(n, idx, dir), nil

	case "cron":
		expr, err := spec.argString(0)
		if err != nil {
			return nil, err
		}
		return window.NewCronWindow(expr, sched)

	case "lossycounting":
		eps, err := spec.argFloat(0)
		if err != nil {
			return nil, err
		}
		idx, err := resolveAttr(1)
		if err != nil {
			return nil, err
		}
		prune, err := spec.argDuration(2)
		if err != nil {
			return nil, err
		}
		return window.NewLossyCountingWindow(eps, idx, prune, sched), nil

	default:
		return nil, errs.New(errs.ValidationFailed, "unknown window type: "+spec.Type)
	}
}
