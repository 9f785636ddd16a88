package reflection_test

import (
	"errors"
	"iter"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID    int
	token string
}

func (b *Base) GetToken() string { return b.token }

type User struct {
	Base
	Name   string
	ID     string
	email  string
	active bool
	Extra  map[string]any `probe:",remain"`
	hidden string         `probe:"-"`
}

func (u User) Email() string { return u.email }

func (u *User) IsActive() bool { return u.active }

func (u *User) Compute() (int, error) { return 42, nil }

func (u *User) Fail() (string, error) { return "", errors.New("boom") }

func (u *User) Explode() string { panic("kaboom") }

func (u *User) Rename(name string) { u.Name = name }

func newUser() User {
	return User{
		Base:   Base{ID: 7, token: "t0k"},
		Name:   "Ada",
		ID:     "u-1",
		email:  "ada@example.com",
		active: true,
		Extra:  map[string]any{"zeta": 1, "alpha": "a", "Name": "dup"},
		hidden: "nope",
	}
}

func names(props []reflection.Property) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.Name)
	}
	return out
}

func TestDescribe_Properties(t *testing.T) {
	a := reflection.New()
	d := a.Describe(reflection.Addressable(reflect.ValueOf(newUser())))

	assert.False(t, d.Anonymous)
	assert.Equal(t, []string{"Name", "ID", "email", "active", "Base.ID", "token"}, names(d.Declared))
	assert.Equal(t, []string{"alpha", "zeta"}, names(d.Dynamic), "dynamic keys are sorted and never shadow declared ones")
	assert.Equal(t, []reflect.Type{reflect.TypeFor[Base]()}, d.Parents)

	assert.Equal(t, []string{"Name", "ID", "Base.ID", "alpha", "zeta"}, names(d.Properties(reflection.Public)))
	assert.Equal(t, []string{"token"}, names(d.Properties(reflection.Protected)))
	assert.Equal(t, []string{"email", "active"}, names(d.Properties(reflection.Private)))

	token := d.Properties(reflection.Protected)[0]
	assert.Equal(t, "reflection_test.Base", token.Declared)
}

func TestDescribe_Anonymous(t *testing.T) {
	v := struct {
		A int
		b string
	}{A: 1, b: "x"}

	d := reflection.New().Describe(reflect.ValueOf(v))
	assert.True(t, d.Anonymous)
	assert.Equal(t, []string{"A", "b"}, names(d.Declared))
}

func TestDescribe_Methods(t *testing.T) {
	a := reflection.New()
	d := a.Describe(reflect.ValueOf(newUser()))

	var all []string
	for _, m := range d.Methods {
		all = append(all, m.Name)
	}
	assert.Equal(t, []string{"Compute", "Email", "Explode", "Fail", "GetToken", "IsActive", "Rename"}, all)

	email, ok := d.Method("Email")
	require.True(t, ok)
	assert.Equal(t, "value", email.Receiver)
	assert.True(t, email.Getter)
	assert.Equal(t, "email", email.Backing)

	token, ok := d.Method("GetToken")
	require.True(t, ok)
	assert.Equal(t, "pointer", token.Receiver)
	assert.Equal(t, "reflection_test.Base", token.Declared)
	assert.True(t, token.Getter)
	assert.Equal(t, "token", token.Backing)

	active, _ := d.Method("IsActive")
	assert.True(t, active.Getter)
	assert.Equal(t, "active", active.Backing)

	compute, _ := d.Method("Compute")
	assert.False(t, compute.Getter, "no prefix and no backing field")
	assert.Equal(t, "func() (int, error)", compute.Signature())

	rename, _ := d.Method("Rename")
	assert.False(t, rename.Getter)
	assert.Equal(t, 1, rename.NumIn)
}

func TestDescribe_GetterOptions(t *testing.T) {
	a := reflection.New(reflection.WithGetterPrefixes("Get"), reflection.WithBareGetters(false))
	d := a.Describe(reflect.ValueOf(newUser()))

	var getters []string
	for _, m := range d.Getters() {
		getters = append(getters, m.Name)
	}
	assert.Equal(t, []string{"GetToken"}, getters)
}

func TestRead(t *testing.T) {
	a := reflection.New()
	v := reflection.Addressable(reflect.ValueOf(newUser()))
	d := a.Describe(v)

	byName := func(props []reflection.Property, name string) reflection.Property {
		i := slices.IndexFunc(props, func(p reflection.Property) bool { return p.Name == name })
		require.GreaterOrEqual(t, i, 0, name)
		return props[i]
	}

	res := a.Read(v, byName(d.Declared, "email"))
	require.True(t, res.Available())
	assert.Equal(t, "ada@example.com", res.Value().Interface())

	res = a.Read(v, byName(d.Declared, "Base.ID"))
	require.True(t, res.Available())
	assert.Equal(t, 7, res.Value().Interface())

	res = a.Read(v, byName(d.Dynamic, "zeta"))
	require.True(t, res.Available())
	assert.Equal(t, 1, res.Value().Interface())
}

func TestRead_NilEmbeddedPointer(t *testing.T) {
	type Inner struct{ X int }
	type Outer struct {
		*Inner
		Y int
	}

	a := reflection.New()
	v := reflection.Addressable(reflect.ValueOf(Outer{Y: 1}))
	d := a.Describe(v)
	require.Equal(t, []string{"Y", "X"}, names(d.Declared))

	res := a.Read(v, d.Declared[1])
	assert.False(t, res.Available())
	assert.ErrorIs(t, res.Err(), domain.ErrUnavailable)
}

func TestTimePseudoProperties(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := reflection.New()
	v := reflection.Addressable(reflect.ValueOf(ts))
	d := a.Describe(v)

	require.Equal(t, []string{"date", "location"}, names(d.Dynamic))
	assert.True(t, d.Dynamic[0].IsPseudo())

	res := a.Read(v, d.Dynamic[0])
	require.True(t, res.Available())
	assert.Equal(t, "2024-03-01T12:00:00Z", res.Value().Interface())

	res = a.Read(v, d.Dynamic[1])
	require.True(t, res.Available())
	assert.Equal(t, "UTC", res.Value().Interface())
}

func TestCall(t *testing.T) {
	a := reflection.New()
	v := reflect.ValueOf(newUser())

	res := a.Call(v, "Compute")
	require.True(t, res.Available())
	assert.Equal(t, 42, res.Value().Interface())

	res = a.Call(v, "Fail")
	assert.False(t, res.Available())
	assert.ErrorIs(t, res.Err(), domain.ErrUnavailable)
	assert.ErrorContains(t, res.Err(), "boom")

	res = a.Call(v, "Explode")
	assert.False(t, res.Available())
	var rec *domain.RecoveredError
	assert.ErrorAs(t, res.Err(), &rec)

	res = a.Call(v, "Rename")
	assert.False(t, res.Available(), "methods with arguments are never called")

	res = a.Call(v, "Missing")
	assert.False(t, res.Available())
}

type bag struct{ items []int }

func (b bag) All() iter.Seq[int] { return slices.Values(b.items) }

func TestClassify(t *testing.T) {
	a := reflection.New()
	var nilMap map[string]int
	var nilPtr *User
	ch := make(chan int)

	cases := []struct {
		name string
		in   any
		want reflection.Kind
	}{
		{"nil", nil, reflection.KindNull},
		{"int", 3, reflection.KindScalar},
		{"string", "s", reflection.KindScalar},
		{"bytes", []byte("x"), reflection.KindScalar},
		{"slice", []int{1}, reflection.KindContainer},
		{"map", map[string]int{}, reflection.KindContainer},
		{"nil map", nilMap, reflection.KindNull},
		{"array", [2]int{}, reflection.KindContainer},
		{"struct", newUser(), reflection.KindObject},
		{"pointer", &User{}, reflection.KindObject},
		{"nil pointer", nilPtr, reflection.KindNull},
		{"iterator", slices.Values([]int{1}), reflection.KindIterator},
		{"func", func() {}, reflection.KindResource},
		{"chan", ch, reflection.KindResource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.Classify(reflect.ValueOf(tc.in)))
		})
	}
}

func TestIterator(t *testing.T) {
	a := reflection.New()

	d := a.Describe(reflect.ValueOf(bag{items: []int{1, 2}}))
	m, ok := d.Iterator()
	require.True(t, ok)
	assert.Equal(t, "All", m.Name)

	d = a.Describe(reflect.ValueOf(newUser()))
	_, ok = d.Iterator()
	assert.False(t, ok)
}
