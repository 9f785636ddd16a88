package probe

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Caller is the call site of an analysis.
type Caller struct {
	File     string    `json:"file" yaml:"file"`
	Line     int       `json:"line" yaml:"line"`
	Function string    `json:"function" yaml:"function"`
	Time     time.Time `json:"time" yaml:"time"`
}

// String returns file:line, or the empty string when the site is unknown.
func (c Caller) String() string {
	if c.File == "" {
		return ""
	}
	return c.File + ":" + strconv.Itoa(c.Line)
}

var pkgPrefix = reflect.TypeFor[Inspector]().PkgPath() + "."

// findCaller walks up the stack past the frames of this package.
func findCaller() Caller {
	c := Caller{Time: time.Now()}
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, pkgPrefix) {
			c.File, c.Line, c.Function = f.File, f.Line, f.Function
			return c
		}
		if !more {
			return c
		}
	}
}
