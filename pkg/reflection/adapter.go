package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unsafe"

	"github.com/aretw0/probe/pkg/domain"
)

// TagName is the struct tag read by the adapter.
//
//	Extra map[string]any `probe:",remain"` // keys are listed as dynamic properties
//	secret string        `probe:"-"`       // never listed
const TagName = "probe"

var (
	errorType = reflect.TypeFor[error]()
	timeType  = reflect.TypeFor[time.Time]()
)

// Adapter wraps Go reflection behind the capabilities the analysis needs.
// Type information is cached, so one Adapter can serve many sessions; it is
// safe for concurrent use.
type Adapter struct {
	prefixes []string
	bare     bool
	catalog  *Catalog
	cache    sync.Map // reflect.Type -> *typeInfo
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithGetterPrefixes sets the method name prefixes that mark a getter.
func WithGetterPrefixes(prefixes ...string) Option {
	return func(a *Adapter) {
		a.prefixes = prefixes
	}
}

// WithBareGetters enables Go style accessors: a method Name() counts as a
// getter when an unexported field such as name backs it.
func WithBareGetters(enabled bool) Option {
	return func(a *Adapter) {
		a.bare = enabled
	}
}

// WithCatalog sets the constants/interfaces catalog.
func WithCatalog(c *Catalog) Option {
	return func(a *Adapter) {
		a.catalog = c
	}
}

// New creates an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		prefixes: []string{"Get", "Is", "Has"},
		bare:     true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.catalog == nil {
		a.catalog = NewCatalog()
	}
	return a
}

// Catalog returns the catalog used for constants and interfaces.
func (a *Adapter) Catalog() *Catalog {
	return a.catalog
}

type typeInfo struct {
	anonymous bool
	declared  []Property
	names     map[string]bool
	parents   []reflect.Type
	embeds    [][]int // field index of each parent
	remain    []int
	remainAt  string
	methods   []Method
}

// Describe lists what can be reflected about the struct value v.
// v must be a struct; use Addressable first when unexported fields are read.
func (a *Adapter) Describe(v reflect.Value) *Description {
	t := v.Type()
	info := a.info(t)
	return &Description{
		Type:      t,
		Kind:      KindObject,
		Anonymous: info.anonymous,
		Declared:  info.declared,
		Methods:   info.methods,
		Parents:   info.parents,
		Dynamic:   a.dynamic(v, info),
	}
}

func (a *Adapter) info(t reflect.Type) *typeInfo {
	if cached, ok := a.cache.Load(t); ok {
		return cached.(*typeInfo)
	}
	info := a.build(t)
	actual, _ := a.cache.LoadOrStore(t, info)
	return actual.(*typeInfo)
}

func (a *Adapter) build(t reflect.Type) *typeInfo {
	info := &typeInfo{
		anonymous: t.Name() == "",
		names:     make(map[string]bool),
	}

	type level struct {
		t     reflect.Type
		index []int
		depth int
	}
	// Breadth first, so shallower fields shadow deeper ones like Go's
	// promotion rules do.
	queue := []level{{t: t}}
	visited := map[reflect.Type]bool{t: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for i := range cur.t.NumField() {
			f := cur.t.Field(i)
			index := append(slices.Clone(cur.index), i)
			name, opts, _ := strings.Cut(f.Tag.Get(TagName), ",")
			if name == "-" {
				continue
			}
			if opts == "remain" && info.remain == nil &&
				f.Type.Kind() == reflect.Map && f.Type.Key().Kind() == reflect.String {
				info.remain = index
				info.remainAt = f.Name
				continue
			}
			if f.Anonymous {
				et := f.Type
				if et.Kind() == reflect.Pointer {
					et = et.Elem()
				}
				if et.Kind() == reflect.Struct {
					if !visited[et] {
						visited[et] = true
						info.parents = append(info.parents, et)
						info.embeds = append(info.embeds, index)
						queue = append(queue, level{t: et, index: index, depth: cur.depth + 1})
					}
					continue
				}
			}

			vis := Public
			if !f.IsExported() {
				vis = Private
				if cur.depth > 0 {
					vis = Protected
				}
			}
			display := f.Name
			if info.names[display] {
				display = cur.t.Name() + "." + f.Name
			}
			info.names[display] = true
			info.declared = append(info.declared, Property{
				Name:       display,
				Field:      f.Name,
				Access:     display,
				Declared:   cur.t.String(),
				Visibility: vis,
				Type:       f.Type,
				Tag:        f.Tag,
				index:      index,
			})
		}
	}

	info.methods = a.methods(t, info)
	return info
}

func (a *Adapter) dynamic(v reflect.Value, info *typeInfo) []Property {
	var out []Property
	if info.remain != nil {
		if fv, err := v.FieldByIndexErr(info.remain); err == nil {
			fv = Expose(fv)
			if !fv.IsNil() {
				keys := fv.MapKeys()
				names := make([]string, 0, len(keys))
				for _, k := range keys {
					if !info.names[k.String()] {
						names = append(names, k.String())
					}
				}
				slices.Sort(names)
				for _, n := range names {
					out = append(out, Property{
						Name:       n,
						Field:      n,
						Access:     info.remainAt + "[" + strconv.Quote(n) + "]",
						Declared:   v.Type().String(),
						Visibility: Public,
						Dynamic:    true,
						Type:       fv.Type().Elem(),
						index:      info.remain,
						key:        n,
					})
				}
			}
		}
	}
	if v.Type() == timeType {
		out = append(out, timePseudo()...)
	}
	return out
}

// timePseudo exposes the formatted date and the location of a time.Time,
// which otherwise only has unexported fields.
func timePseudo() []Property {
	read := func(f func(time.Time) string) func(reflect.Value) (reflect.Value, error) {
		return func(v reflect.Value) (reflect.Value, error) {
			t, ok := Expose(v).Interface().(time.Time)
			if !ok {
				return reflect.Value{}, errors.New("not a time.Time")
			}
			return reflect.ValueOf(f(t)), nil
		}
	}
	return []Property{
		{
			Name: "date", Field: "date", Declared: timeType.String(), Visibility: Public,
			Dynamic: true, Type: reflect.TypeFor[string](),
			pseudo: read(func(t time.Time) string { return t.Format(time.RFC3339Nano) }),
		},
		{
			Name: "location", Field: "location", Declared: timeType.String(), Visibility: Public,
			Dynamic: true, Type: reflect.TypeFor[string](),
			pseudo: read(func(t time.Time) string { return t.Location().String() }),
		},
	}
}

// IsPseudo reports whether the property is computed rather than stored.
func (p Property) IsPseudo() bool {
	return p.pseudo != nil
}

func (a *Adapter) methods(t reflect.Type, info *typeInfo) []Method {
	pt := reflect.PointerTo(t)
	out := make([]Method, 0, pt.NumMethod())
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		ft := m.Type
		in := make([]reflect.Type, 0, ft.NumIn()-1)
		for j := 1; j < ft.NumIn(); j++ {
			in = append(in, ft.In(j))
		}
		outs := make([]reflect.Type, 0, ft.NumOut())
		for j := range ft.NumOut() {
			outs = append(outs, ft.Out(j))
		}

		method := Method{
			Name:     m.Name,
			Type:     reflect.FuncOf(in, outs, ft.IsVariadic()),
			NumIn:    len(in),
			NumOut:   len(outs),
			Receiver: "pointer",
			Declared: t.String(),
		}
		fn := m.Func
		if vm, ok := t.MethodByName(m.Name); ok {
			method.Receiver = "value"
			fn = vm.Func
		}
		var within []int
		if promoted(fn) {
			for i, p := range info.parents {
				if _, ok := reflect.PointerTo(p).MethodByName(m.Name); ok {
					method.Declared = p.String()
					within = info.embeds[i]
					break
				}
			}
		}

		if method.NumIn == 0 && (method.NumOut == 1 || (method.NumOut == 2 && outs[1] == errorType)) {
			base, prefixed := a.stripPrefix(m.Name)
			method.Backing = info.backing(m.Name, base, within)
			method.Getter = prefixed || (a.bare && method.Backing != "")
		}
		out = append(out, method)
	}
	return out
}

// promoted reports whether fn is a compiler generated wrapper, which is what
// methods promoted from embedded fields are.
func promoted(fn reflect.Value) bool {
	if !fn.IsValid() {
		return false
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

func (a *Adapter) stripPrefix(name string) (string, bool) {
	for _, p := range a.prefixes {
		rest, ok := strings.CutPrefix(name, p)
		if ok && rest != "" && unicode.IsUpper([]rune(rest)[0]) {
			return rest, true
		}
	}
	return name, false
}

// backing guesses which property a getter returns, trying the usual naming
// conventions in order. Returns the property's display name.
// A method promoted from an embedded field only sees the fields below that
// embed, whose index starts with within.
func (info *typeInfo) backing(method, base string, within []int) string {
	lc := lowerFirst(base)
	snake := toSnake(base)
	candidates := []string{
		lc, "_" + lc,
		base, "_" + base,
		strings.ToLower(base), "_" + strings.ToLower(base),
		snake, "_" + snake,
		lowerFirst(method),
	}
	for _, c := range candidates {
		for _, p := range info.declared {
			if p.Field != c || c == method {
				continue
			}
			if within != nil && (len(p.index) <= len(within) || !slices.Equal(p.index[:len(within)], within)) {
				continue
			}
			return p.Name
		}
	}
	return ""
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Read returns the value of p on the struct value obj, bypassing visibility.
// obj should be addressable (see Addressable) for unexported fields to be
// readable. Nothing is modified.
func (a *Adapter) Read(obj reflect.Value, p Property) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Unavailable(&domain.RecoveredError{Op: "read " + p.Name, Value: r})
		}
	}()

	if p.pseudo != nil {
		v, err := p.pseudo(obj)
		if err != nil {
			return Unavailable(err)
		}
		return Readable(v)
	}

	fv, err := obj.FieldByIndexErr(p.index)
	if err != nil {
		return Unavailable(err)
	}
	fv = Expose(fv)
	if p.Dynamic {
		if fv.IsNil() {
			return Unavailable(fmt.Errorf("property %s vanished", p.Name))
		}
		mv := fv.MapIndex(reflect.ValueOf(p.key).Convert(fv.Type().Key()))
		if !mv.IsValid() {
			return Unavailable(fmt.Errorf("property %s vanished", p.Name))
		}
		return Readable(mv)
	}
	if !fv.CanInterface() {
		return Unavailable(fmt.Errorf("field %s is not addressable", p.Name))
	}
	return Readable(fv)
}

// Call invokes the zero argument method name on recv. Panics are recovered and
// a non-nil trailing error result turns into an unavailable result.
func (a *Adapter) Call(recv reflect.Value, name string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Unavailable(&domain.RecoveredError{Op: "call " + name, Value: r})
		}
	}()

	recv = Receiver(recv)
	fn := recv.MethodByName(name)
	if !fn.IsValid() {
		return Unavailable(fmt.Errorf("no method %s on %s", name, recv.Type()))
	}
	ft := fn.Type()
	if ft.NumIn() != 0 {
		return Unavailable(fmt.Errorf("method %s takes arguments", name))
	}
	if ft.NumOut() == 0 {
		return Unavailable(fmt.Errorf("method %s returns nothing", name))
	}
	out := fn.Call(nil)
	if last := out[len(out)-1]; len(out) > 1 && last.Type() == errorType && !last.IsNil() {
		return Unavailable(last.Interface().(error))
	}
	return Readable(out[0])
}

// Classify resolves the value kind of v. Pointers and interfaces are
// classified as they are, so callers dereference first.
func (a *Adapter) Classify(v reflect.Value) Kind {
	if !v.IsValid() {
		return KindNull
	}
	switch v.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return KindScalar
	case reflect.Slice:
		if v.IsNil() {
			return KindNull
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return KindScalar
		}
		return KindContainer
	case reflect.Map:
		if v.IsNil() {
			return KindNull
		}
		return KindContainer
	case reflect.Array:
		return KindContainer
	case reflect.Struct:
		return KindObject
	case reflect.Func:
		if v.IsNil() {
			return KindNull
		}
		if v.Type().CanSeq() || v.Type().CanSeq2() {
			return KindIterator
		}
		return KindResource
	case reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return KindNull
		}
		return KindResource
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return KindNull
		}
		return a.Classify(v.Elem())
	}
	return KindUnknown
}

// Iterator returns the All() method of an iterable type.
func (d *Description) Iterator() (Method, bool) {
	m, ok := d.Method("All")
	if !ok || m.NumIn != 0 || m.NumOut != 1 {
		return Method{}, false
	}
	rt := m.Type.Out(0)
	if rt.Kind() != reflect.Func || !(rt.CanSeq() || rt.CanSeq2()) {
		return Method{}, false
	}
	return m, true
}

// Expose returns a copy of v that can be interfaced even when v was reached
// through an unexported field. v must be addressable for that to work;
// otherwise v is returned unchanged.
func Expose(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// Addressable returns v itself when addressable, otherwise an addressable copy.
func Addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// Receiver returns a pointer suitable for calling any method of v.
func Receiver(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return v
	}
	v = Expose(v)
	return Addressable(v).Addr()
}
