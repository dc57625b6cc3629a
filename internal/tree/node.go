package tree

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// RootPath is the implicit root every backend starts with.
const RootPath = "/"

var (
	// ErrConflict reports a change set that no longer matches committed state.
	ErrConflict = errors.New("tree: write conflict")
	// ErrNotFound reports an operation on a node that does not exist.
	ErrNotFound = errors.New("tree: node not found")
	// ErrParentMissing reports a create whose parent does not exist.
	ErrParentMissing = errors.New("tree: parent node missing")
	// ErrInvalidPath reports a malformed node path.
	ErrInvalidPath = errors.New("tree: invalid path")
)

// Node is a committed or staged node snapshot.
type Node struct {
	Path  string
	Type  string
	Props Properties
}

// Name returns the last path segment.
func (n Node) Name() string { return Name(n.Path) }

// IsZero reports whether the node is the zero value.
func (n Node) IsZero() bool { return n.Path == "" }

// Properties holds scalar node properties. Values are normalized to string,
// int64, float64 or bool.
type Properties map[string]any

// Clone returns a shallow copy. Values are immutable scalars.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string value stored under key.
func (p Properties) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Int64 returns the integer value stored under key.
func (p Properties) Int64(key string) (int64, bool) {
	v, ok := p[key].(int64)
	return v, ok
}

// NormalizeProperties converts every value to its canonical scalar form.
func NormalizeProperties(p Properties) (Properties, error) {
	out := make(Properties, len(p))
	for k, v := range p {
		if k == "" {
			return nil, errors.New("tree: empty property name")
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// NormalizeValue maps any scalar kind onto string, int64, float64 or bool.
func NormalizeValue(v any) (any, error) {
	if v == nil {
		return nil, errors.New("nil value")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ValidatePath checks that p is absolute, has no empty segments and no
// trailing slash.
func ValidatePath(p string) error {
	if p == RootPath {
		return nil
	}
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") || strings.Contains(p, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return nil
}

// Join appends relative segments to base.
func Join(base string, elems ...string) string {
	out := strings.TrimSuffix(base, "/")
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		out += "/" + e
	}
	if out == "" {
		return RootPath
	}
	return out
}

// Parent returns the parent path; the parent of a top-level node is "/".
func Parent(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return RootPath
	}
	return p[:idx]
}

// Name returns the last segment of p.
func Name(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}

// Within reports whether p lies strictly below root.
func Within(root, p string) bool {
	if root == RootPath {
		return p != RootPath && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}
