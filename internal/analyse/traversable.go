package analyse

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/domain"
)

// iteration analyses an iterator func (iter.Seq or iter.Seq2).
func (s *Session) iteration(n *domain.Node, fn reflect.Value, ids []flow.Identity) {
	n.Type = domain.TypeArray
	n.Value = n.TypeName
	n.Multiline = true

	leave := s.guard.Enter()
	defer leave()
	if s.cutoff(n) {
		return
	}

	entries, truncated, err := s.drive(fn)
	if err != nil {
		s.recovered("iteration", err)
		n.AddMeta(domain.MetaReason, err.Error())
	}
	if truncated {
		n.AddMeta(domain.MetaHint, fmt.Sprintf("stopped after %d entries", len(entries)))
	}
	n.Count = len(entries)
	n.AddMeta(domain.MetaCount, strconv.Itoa(n.Count))
	s.entries(n, fn, entries, s.track(n, ids))
}

// drive runs an iterator once and collects at most max-traversable-entries
// entries. A panicking iterator yields no entries at all.
func (s *Session) drive(fn reflect.Value) (entries []entry, truncated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, truncated = nil, false
			err = fmt.Errorf("%w: %w", domain.ErrIterationAborted, &domain.RecoveredError{Op: "iterate " + fn.Type().String(), Value: r})
		}
	}()

	ft := fn.Type()
	yt := ft.In(0)
	limit := s.settings.MaxTraversableEntries
	pair := ft.CanSeq2()

	yield := reflect.MakeFunc(yt, func(args []reflect.Value) []reflect.Value {
		if len(entries) >= limit {
			truncated = true
			return []reflect.Value{reflect.ValueOf(false).Convert(yt.Out(0))}
		}
		i := len(entries)
		e := entry{name: strconv.Itoa(i), value: args[0]}
		if pair {
			e.name, _ = keyText(args[0])
			e.value = args[1]
		}
		entries = append(entries, e)
		return []reflect.Value{reflect.ValueOf(true).Convert(yt.Out(0))}
	})
	fn.Call([]reflect.Value{yield})
	return entries, truncated, nil
}
