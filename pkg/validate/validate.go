// Package validate provides struct-tag validation for request inputs.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty (nil pointer counts as empty)
//	nullable            if empty, skip all remaining rules for this field
//	dive                validate the nested struct, or each struct in a slice
//	email               valid email address
//	url                 valid http/https URL
//	objectid            24 hexadecimal characters
//	alpha_dash          letters, digits, hyphens, underscores
//	numeric             any number
//	integer             whole number
//	min=N / max=N       string: char length | number: value
//	gt/gte/lt/lte=N     number comparisons
//	between=min,max     number or string length, inclusive
//	in=a,b,c            value must be one of the listed items
//	not_in=a,b,c        value must NOT be one of the listed items
//	regex=pattern       value must match (avoid commas in pattern)
//
// Every failing rule is reported, keyed by the json field name. Nested
// fields use dotted paths such as "address.city" or "products.2.price".
//
//	type Input struct {
//	    Name    string          `json:"name"    validate:"required,min=3,max=100"`
//	    Status  string          `json:"status"  validate:"nullable,in=active,inactive"`
//	    Address *models.Address `json:"address" validate:"nullable,dive"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Errors maps a field path to every violation found on it.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Fields returns the field paths in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasErrors returns true when errs is non-empty.
func HasErrors(errs Errors) bool { return len(errs) > 0 }

// Struct validates every exported field of v that carries a `validate` tag.
func Struct(v any) Errors {
	errs := Errors{}
	walk(reflect.ValueOf(v), "", errs)
	return errs
}

// ObjectID reports whether s is a 24-character hex identifier.
func ObjectID(s string) bool { return objectIDRE.MatchString(s) }

// numeric is implemented by decimal-backed types such as models.Money.
type numeric interface{ Float64() float64 }

type rule func(field string, v reflect.Value, raw, param string) string

var rules map[string]rule

func init() {
	rules = map[string]rule{
		"required": func(field string, v reflect.Value, _, _ string) string {
			if isEmpty(v) {
				return fmt.Sprintf("The %s field is required.", field)
			}
			return ""
		},
		"email": func(field string, _ reflect.Value, raw, _ string) string {
			if !emailRE.MatchString(raw) {
				return fmt.Sprintf("The %s must be a valid email address.", field)
			}
			return ""
		},
		"url": func(field string, _ reflect.Value, raw, _ string) string {
			u, err := url.ParseRequestURI(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Sprintf("The %s must be a valid URL.", field)
			}
			return ""
		},
		"objectid": func(field string, _ reflect.Value, raw, _ string) string {
			if !objectIDRE.MatchString(raw) {
				return fmt.Sprintf("The %s must be a 24 character hex id.", field)
			}
			return ""
		},
		"alpha_dash": func(field string, _ reflect.Value, raw, _ string) string {
			for _, c := range raw {
				if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
					return fmt.Sprintf("The %s field may only contain letters, numbers, dashes, and underscores.", field)
				}
			}
			return ""
		},
		"numeric": func(field string, v reflect.Value, raw, _ string) string {
			if isNumeric(v) {
				return ""
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return fmt.Sprintf("The %s field must be a number.", field)
			}
			return ""
		},
		"integer": func(field string, v reflect.Value, raw, _ string) string {
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				return fmt.Sprintf("The %s field must be an integer.", field)
			}
			return ""
		},
		"min": func(field string, v reflect.Value, raw, param string) string {
			n := parseFloat(param)
			if isNumeric(v) {
				if toFloat(v) < n {
					return fmt.Sprintf("The %s must be at least %s.", field, param)
				}
			} else if isList(v) {
				if float64(v.Len()) < n {
					return fmt.Sprintf("The %s must have at least %s items.", field, param)
				}
			} else if float64(runeLen(raw)) < n {
				return fmt.Sprintf("The %s must be at least %s characters.", field, param)
			}
			return ""
		},
		"max": func(field string, v reflect.Value, raw, param string) string {
			n := parseFloat(param)
			if isNumeric(v) {
				if toFloat(v) > n {
					return fmt.Sprintf("The %s must not be greater than %s.", field, param)
				}
			} else if isList(v) {
				if float64(v.Len()) > n {
					return fmt.Sprintf("The %s must not have more than %s items.", field, param)
				}
			} else if float64(runeLen(raw)) > n {
				return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
			}
			return ""
		},
		"gt":  compare(func(a, b float64) bool { return a > b }, "greater than"),
		"gte": compare(func(a, b float64) bool { return a >= b }, "greater than or equal to"),
		"lt":  compare(func(a, b float64) bool { return a < b }, "less than"),
		"lte": compare(func(a, b float64) bool { return a <= b }, "less than or equal to"),
		"between": func(field string, v reflect.Value, raw, param string) string {
			lo, hi, ok := strings.Cut(param, ",")
			if !ok {
				return ""
			}
			l, h := parseFloat(lo), parseFloat(hi)
			if isNumeric(v) {
				if f := toFloat(v); f < l || f > h {
					return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
				}
			} else if n := float64(runeLen(raw)); n < l || n > h {
				return fmt.Sprintf("The %s must be between %s and %s characters.", field, lo, hi)
			}
			return ""
		},
		"in": func(field string, _ reflect.Value, raw, param string) string {
			for _, a := range strings.Split(param, ",") {
				if raw == strings.TrimSpace(a) {
					return ""
				}
			}
			return fmt.Sprintf("The selected %s is invalid.", field)
		},
		"not_in": func(field string, _ reflect.Value, raw, param string) string {
			for _, a := range strings.Split(param, ",") {
				if raw == strings.TrimSpace(a) {
					return fmt.Sprintf("The selected %s is invalid.", field)
				}
			}
			return ""
		},
		"regex": func(field string, _ reflect.Value, raw, param string) string {
			re, err := regexp.Compile(param)
			if err != nil {
				return fmt.Sprintf("The %s has an invalid validation pattern.", field)
			}
			if !re.MatchString(raw) {
				return fmt.Sprintf("The %s format is invalid.", field)
			}
			return ""
		},
	}
}

func compare(ok func(a, b float64) bool, words string) rule {
	return func(field string, v reflect.Value, _, param string) string {
		if !ok(toFloat(v), parseFloat(param)) {
			return fmt.Sprintf("The %s must be %s %s.", field, words, param)
		}
		return ""
	}
}

// ── Walking ──────────────────────────────────────────────────────────────────

func walk(rv reflect.Value, prefix string, errs Errors) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := prefix + jsonFieldName(field)
		value := rv.Field(i)
		list := splitRules(tag)

		if hasRule(list, "nullable") && isEmpty(value) {
			continue
		}

		// Rules apply to the pointed-to value; a nil pointer only fails "required".
		target := value
		for target.Kind() == reflect.Ptr && !target.IsNil() {
			target = target.Elem()
		}
		if target.Kind() == reflect.Ptr {
			if hasRule(list, "required") {
				errs.Add(name, fmt.Sprintf("The %s field is required.", name))
			}
			continue
		}

		raw := rawString(target)
		for _, r := range list {
			key, param, _ := strings.Cut(r, "=")
			if key == "nullable" || key == "dive" {
				continue
			}
			fn, ok := rules[key]
			if !ok {
				continue
			}
			if msg := fn(name, target, raw, param); msg != "" {
				errs.Add(name, msg)
			}
		}

		if hasRule(list, "dive") {
			dive(target, name, errs)
		}
	}
}

func dive(v reflect.Value, name string, errs Errors) {
	switch v.Kind() {
	case reflect.Struct:
		walk(v, name+".", errs)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), fmt.Sprintf("%s.%d.", name, i), errs)
		}
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

var (
	emailRE    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	objectIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

func rawString(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
	}
	return fmt.Sprintf("%v", v.Interface())
}

func runeLen(s string) int { return len([]rune(s)) }

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
	}
	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	if v.IsValid() && v.CanInterface() {
		_, ok := v.Interface().(numeric)
		return ok
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	if v.IsValid() && v.CanInterface() {
		if n, ok := v.Interface().(numeric); ok {
			return n.Float64()
		}
	}
	return parseFloat(rawString(v))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		name = f.Tag.Get("form")
	}
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

// multi-value rules whose parameter may itself contain commas.
var multiValue = map[string]bool{"in": true, "not_in": true, "between": true}

// splitRules splits the tag on commas, folding the values of in=, not_in=
// and between= back together:
// "required,in=a,b,c,max=10" → ["required", "in=a,b,c", "max=10"].
func splitRules(tag string) []string {
	var out []string
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n := len(out); n > 0 && !isRuleToken(tok) {
			key, _, _ := strings.Cut(out[n-1], "=")
			if multiValue[key] {
				out[n-1] += "," + tok
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

func isRuleToken(tok string) bool {
	key, _, _ := strings.Cut(tok, "=")
	if key == "nullable" || key == "dive" {
		return true
	}
	_, ok := rules[key]
	return ok
}

func hasRule(list []string, target string) bool {
	for _, r := range list {
		if r == target {
			return true
		}
	}
	return false
}
