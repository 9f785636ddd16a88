package analyse

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strconv"
	"time"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/reflection"
)

// maxWrapped bounds how far an error chain is followed.
const maxWrapped = 32

var recordType = reflect.TypeFor[slog.Record]()

// errorObject adds the error block for error values and log records.
func errorObject(s *Session, o *object) []*domain.Node {
	if o.desc.Type == recordType {
		return []*domain.Node{s.logRecord(o)}
	}
	err, ok := reflection.Receiver(o.v).Interface().(error)
	if !ok {
		return nil
	}

	var children []*domain.Node
	if s.blacklist.IsAllowedDebugCall(o.desc.Type, "Error") {
		if res := s.adapter.Call(o.v, "Error"); res.Available() {
			children = append(children, s.label("Message", res.Value().String(), domain.SectionError))
		} else {
			s.recovered("invocation", res.Err())
		}
	}
	children = append(children, s.label("Type", o.desc.Type.String(), domain.SectionError))
	if code := s.errorCode(o); code != nil {
		children = append(children, code)
	}
	if loc, ok := s.errorLocation(o); ok {
		children = append(children, s.label("Location", loc, domain.SectionError))
	}
	if !s.blacklist.IsAllowedDebugCall(o.desc.Type, "Unwrap") {
		return []*domain.Node{s.group("Error", domain.SectionError, children)}
	}
	if wrapped := s.wrapped(err); len(wrapped) > 0 {
		children = append(children, s.group("Wrapped", domain.SectionError, wrapped))
	}
	return []*domain.Node{s.group("Error", domain.SectionError, children)}
}

// errorCode reads a Code() method or, failing that, a Code field.
func (s *Session) errorCode(o *object) *domain.Node {
	if m, ok := o.desc.Method("Code"); ok && m.NumIn == 0 && m.NumOut > 0 {
		if !s.blacklist.IsAllowedDebugCall(o.desc.Type, "Code") {
			return nil
		}
		if res := s.adapter.Call(o.v, "Code"); res.Available() {
			return s.safeRoute(res.Value(), "Code", domain.MethodConnector("Code"), domain.SectionError)
		}
		return nil
	}
	if p, ok := o.desc.Property("Code"); ok {
		if res := s.adapter.Read(o.v, p); res.Available() {
			return s.safeRoute(res.Value(), "Code", domain.FieldConnector(p.Access, p.Visibility != reflection.Public), domain.SectionError)
		}
	}
	return nil
}

// errorLocation reads File and Line fields, as carried by many error types.
func (s *Session) errorLocation(o *object) (string, bool) {
	file, ok := o.desc.Property("File")
	if !ok {
		return "", false
	}
	fres := s.adapter.Read(o.v, file)
	if !fres.Available() || fres.Value().Kind() != reflect.String {
		return "", false
	}
	loc := fres.Value().String()
	if line, ok := o.desc.Property("Line"); ok {
		if lres := s.adapter.Read(o.v, line); lres.Available() && lres.Value().CanInt() {
			loc += ":" + strconv.FormatInt(lres.Value().Int(), 10)
		}
	}
	return loc, true
}

// wrapped lists the chain below err, following both Unwrap forms.
// Blacklisted links are shown by type only and not followed further.
func (s *Session) wrapped(err error) (nodes []*domain.Node) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered("invocation", &domain.RecoveredError{Op: "unwrap", Value: r})
		}
	}()

	queue := unwrap(err)
	for len(queue) > 0 && len(nodes) < maxWrapped {
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		t := reflect.TypeOf(e)
		text := t.String()
		if s.blacklist.IsAllowedDebugCall(t, "Error") {
			text += ": " + e.Error()
		}
		nodes = append(nodes, s.label(strconv.Itoa(len(nodes)), text, domain.SectionError))
		if s.blacklist.IsAllowedDebugCall(t, "Unwrap") {
			queue = append(queue, unwrap(e)...)
		}
	}
	return nodes
}

func unwrap(err error) []error {
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		return u.Unwrap()
	case interface{ Unwrap() error }:
		return []error{u.Unwrap()}
	}
	if inner := errors.Unwrap(err); inner != nil {
		return []error{inner}
	}
	return nil
}

func (s *Session) logRecord(o *object) *domain.Node {
	r := o.v.Interface().(slog.Record)
	children := []*domain.Node{
		s.label("Message", r.Message, domain.SectionError),
		s.label("Level", r.Level.String(), domain.SectionError),
	}
	if !r.Time.IsZero() {
		children = append(children, s.label("Time", r.Time.Format(time.RFC3339Nano), domain.SectionError))
	}
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			loc := s.label("Location", fmt.Sprintf("%s:%d", frame.File, frame.Line), domain.SectionError)
			loc.AddMeta(domain.MetaSource, frame.Function)
			children = append(children, loc)
		}
	}

	var attrs []*domain.Node
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, s.safeRoute(reflect.ValueOf(a.Value.Resolve().Any()), a.Key, domain.Connector{}, domain.SectionError))
		return true
	})
	if len(attrs) > 0 {
		children = append(children, s.group("Attributes", domain.SectionError, attrs))
	}
	return s.group("Log record", domain.SectionError, children)
}
