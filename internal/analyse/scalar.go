package analyse

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/probe/pkg/domain"
)

// mimeSniffMin is the shortest string worth content sniffing.
const mimeSniffMin = 32

// scalar formats v into n. With analysers enabled, strings and integers get
// the extra metadata and children the scalar analysers produce.
func (s *Session) scalar(n *domain.Node, v reflect.Value, analysers bool) {
	n.Type = domain.TypeScalar

	switch v.Kind() {
	case reflect.Bool:
		n.Value = strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n.Value = strconv.FormatInt(v.Int(), 10)
		if analysers {
			timestamp(n, v.Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n.Value = strconv.FormatUint(v.Uint(), 10)
		if analysers && v.Uint() < 1<<63 {
			timestamp(n, int64(v.Uint()))
		}
	case reflect.Float32:
		n.Value = strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		n.Value = strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Complex64:
		n.Value = strconv.FormatComplex(v.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		n.Value = strconv.FormatComplex(v.Complex(), 'g', -1, 128)
	case reflect.String:
		s.text(n, []byte(v.String()), false, analysers)
	case reflect.Slice:
		s.text(n, v.Bytes(), true, analysers)
	}

	if analysers {
		for _, extra := range s.fire(domain.StepScalar, domain.MarkerEnd, v, n) {
			n.SetChildren(appendSeq(n, extra))
		}
	}
}

func (s *Session) text(n *domain.Node, b []byte, raw, analysers bool) {
	valid := utf8.Valid(b)
	full := string(b)
	if !valid && raw {
		full = hex.EncodeToString(b)
	}
	n.Value = full
	if limit := s.settings.MaxStringLength; limit > 0 && utf8.RuneCountInString(full) > limit {
		n.Value = string([]rune(full)[:limit]) + "..."
		n.Extra = full
	}
	if !analysers {
		return
	}

	n.AddMeta(domain.MetaLength, strconv.Itoa(utf8.RuneCount(b)))
	if !valid {
		n.AddMeta(domain.MetaEncoding, "broken UTF-8")
	}
	if len(b) >= mimeSniffMin {
		if mime := http.DetectContentType(b); !strings.HasPrefix(mime, "text/plain") {
			n.AddMeta(domain.MetaMimetype, mime)
		}
	}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 1 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		n.SetChildren(s.lazy(nil, func(yield func(*domain.Node) bool) {
			var decoded any
			if err := json.Unmarshal(trimmed, &decoded); err != nil {
				return
			}
			child := s.safeRoute(reflect.ValueOf(decoded), "Decoded json", domain.Connector{}, domain.SectionNone)
			yield(child)
		}))
	}
}

// timestamp tags integers that look like a unix time in seconds.
func timestamp(n *domain.Node, i int64) {
	if i < 1_000_000_000 || i > 9_999_999_999 {
		return
	}
	n.AddMeta(domain.MetaTimestamp, time.Unix(i, 0).UTC().Format(time.RFC3339))
}

// appendSeq returns the children of n followed by extra.
func appendSeq(n *domain.Node, extra *domain.Node) func(yield func(*domain.Node) bool) {
	prev := n.Children()
	return func(yield func(*domain.Node) bool) {
		for c := range prev {
			if !yield(c) {
				return
			}
		}
		yield(extra)
	}
}
