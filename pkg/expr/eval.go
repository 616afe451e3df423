package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the value of a path that cannot be resolved.
var Undefined any = undefined{}

// Resolver resolves paths during evaluation.
type Resolver interface {
	Lookup(path string) (any, bool)
}

// Eval evaluates n, resolving paths through r. Values follow JavaScript
// rules: + concatenates when either side is a string, relational operators
// compare strings or numbers, == is loose and === is strict equality.
func Eval(n Node, r Resolver) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *Path:
		v, ok := r.Lookup(n.Name)
		if !ok {
			return Undefined, nil
		}
		return normalize(v), nil

	case *Prefix:
		v, err := Eval(n.Operand, r)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case BANG:
			return !truthy(v), nil
		case MINUS:
			return -toNumber(v), nil
		case PLUS:
			return toNumber(v), nil
		}
		return nil, fmt.Errorf("unknown prefix operator %s", n.Op)

	case *Conditional:
		cond, err := Eval(n.Cond, r)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return Eval(n.Then, r)
		}
		return Eval(n.Else, r)

	case *Infix:
		left, err := Eval(n.Left, r)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case AND:
			if !truthy(left) {
				return left, nil
			}
			return Eval(n.Right, r)
		case OR:
			if truthy(left) {
				return left, nil
			}
			return Eval(n.Right, r)
		}
		right, err := Eval(n.Right, r)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, left, right)
	}
	return nil, fmt.Errorf("unknown node %T", n)
}

func binary(op TokenType, left, right any) (any, error) {
	switch op {
	case PLUS:
		lp, rp := toPrimitive(left), toPrimitive(right)
		_, ls := lp.(string)
		_, rs := rp.(string)
		if ls || rs {
			return toString(lp) + toString(rp), nil
		}
		return toNumber(lp) + toNumber(rp), nil
	case MINUS:
		return toNumber(left) - toNumber(right), nil
	case ASTERISK:
		return toNumber(left) * toNumber(right), nil
	case SLASH:
		return toNumber(left) / toNumber(right), nil
	case PERCENT:
		return math.Mod(toNumber(left), toNumber(right)), nil
	case LT, LTE, GT, GTE:
		return compare(op, toPrimitive(left), toPrimitive(right)), nil
	case EQ:
		return looseEqual(left, right), nil
	case NOT_EQ:
		return !looseEqual(left, right), nil
	case STRICT_EQ:
		return strictEqual(left, right), nil
	case STRICT_NOT_EQ:
		return !strictEqual(left, right), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// normalize converts Go numbers to float64 and unwraps frame overlays so
// that values compare the same way whatever their Go type.
func normalize(v any) any {
	for {
		u, ok := v.(mustache.Unwrapper)
		if !ok {
			break
		}
		v = u.Unwrap()
	}
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	}
	if mustache.IsNil(v) {
		return nil
	}
	return v
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, undefined, bool, float64, string:
		return true
	}
	return false
}

func toPrimitive(v any) any {
	if isPrimitive(v) {
		return v
	}
	return mustache.Stringify(v)
}

func truthy(v any) bool {
	switch v := v.(type) {
	case undefined, nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	}
	return true
}

func toNumber(v any) float64 {
	switch v := toPrimitive(v).(type) {
	case nil:
		return 0
	case undefined:
		return math.NaN()
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if n, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
		if strings.ContainsAny(s, "_xXpP") || strings.EqualFold(s, "inf") || strings.EqualFold(s, "nan") {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func toString(v any) string {
	switch v := v.(type) {
	case undefined:
		return "undefined"
	case nil:
		return "null"
	case float64:
		return mustache.FormatNumber(v)
	}
	return mustache.Stringify(v)
}

func compare(op TokenType, left, right any) bool {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case LT:
				return ls < rs
			case LTE:
				return ls <= rs
			case GT:
				return ls > rs
			}
			return ls >= rs
		}
	}
	l, r := toNumber(left), toNumber(right)
	switch op {
	case LT:
		return l < r
	case LTE:
		return l <= r
	case GT:
		return l > r
	}
	return l >= r
}

func strictEqual(left, right any) bool {
	switch l := left.(type) {
	case undefined:
		_, ok := right.(undefined)
		return ok
	case nil:
		return right == nil
	case bool, string:
		return left == right
	case float64:
		r, ok := right.(float64)
		return ok && l == r
	}
	if isPrimitive(right) {
		return false
	}
	return sameObject(left, right)
}

// sameObject compares non-primitive values by reference where Go has one.
func sameObject(left, right any) bool {
	lv, rv := reflect.ValueOf(left), reflect.ValueOf(right)
	if lv.Type() != rv.Type() {
		return false
	}
	switch lv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return lv.Pointer() == rv.Pointer() && (lv.Kind() != reflect.Slice || lv.Len() == rv.Len())
	}
	if lv.Type().Comparable() {
		return left == right
	}
	return false
}

func looseEqual(left, right any) bool {
	_, lu := left.(undefined)
	_, ru := right.(undefined)
	lnull, rnull := lu || left == nil, ru || right == nil
	if lnull || rnull {
		return lnull && rnull
	}
	if isPrimitive(left) == isPrimitive(right) {
		if !isPrimitive(left) {
			return sameObject(left, right)
		}
		if _, ok := left.(string); ok {
			if _, ok := right.(string); ok {
				return left == right
			}
		}
		if _, ok := left.(bool); ok {
			if _, ok := right.(bool); ok {
				return left == right
			}
		}
		return toNumber(left) == toNumber(right)
	}

	lp, rp := toPrimitive(left), toPrimitive(right)
	return looseEqual(lp, rp)
}
