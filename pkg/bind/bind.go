// Package bind decodes and validates an HTTP request body into a typed input.
//
// JSON and multipart/form-data bodies resolve to the same struct: JSON uses
// `json` tags, form fields use `form` tags.
package bind

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/validate"
)

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// JSON decodes r.Body into dest and validates it. The body is capped at
// MAX_BODY_BYTES. Both failures are Validation errors.
func JSON(r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return bodyError(err)
	}
	return Validate(dest)
}

// Multipart parses a multipart form, copies `form`-tagged fields into dest,
// validates it, and returns the parsed form so the caller can read files.
func Multipart(r *http.Request, dest any) (*multipart.Form, error) {
	limit := config.MaxBodyBytes()
	r.Body = http.MaxBytesReader(nil, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, bodyError(err)
	}
	if err := decodeForm(r.MultipartForm.Value, dest); err != nil {
		return nil, err
	}
	if err := Validate(dest); err != nil {
		return nil, err
	}
	return r.MultipartForm, nil
}

// Validate runs struct-tag validation and returns every violation.
func Validate(dest any) error {
	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return apperr.Invalid("bind", errs)
	}
	return nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperr.InvalidField("bind", "body", fmt.Sprintf("request body too large (max %d bytes)", maxErr.Limit))
	case errors.Is(err, io.EOF):
		return apperr.InvalidField("bind", "body", "request body is empty")
	default:
		return apperr.InvalidField("bind", "body", "invalid request body: "+err.Error())
	}
}

// ── Form decoding ────────────────────────────────────────────────────────────

var textUnmarshaler = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func decodeForm(values map[string][]string, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind: form destination must be a struct pointer, got %T", dest)
	}
	rv = rv.Elem()
	rt := rv.Type()

	errs := validate.Errors{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := strings.Split(f.Tag.Get("form"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		vals, ok := values[name]
		if !ok || len(vals) == 0 {
			continue
		}
		if err := setField(rv.Field(i), vals); err != nil {
			errs.Add(name, fmt.Sprintf("The %s field is invalid.", name))
		}
	}
	if validate.HasErrors(errs) {
		return apperr.Invalid("bind", errs)
	}
	return nil
}

func setField(fv reflect.Value, vals []string) error {
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String {
		fv.Set(reflect.ValueOf(append([]string(nil), vals...)))
		return nil
	}

	raw := strings.TrimSpace(vals[0])
	if fv.Kind() == reflect.Ptr {
		if raw == "" {
			return nil
		}
		ptr := reflect.New(fv.Type().Elem())
		if err := setScalar(ptr.Elem(), raw); err != nil {
			return err
		}
		fv.Set(ptr)
		return nil
	}
	return setScalar(fv, raw)
}

func setScalar(fv reflect.Value, raw string) error {
	if fv.CanAddr() && fv.Addr().Type().Implements(textUnmarshaler) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("bind: unsupported form field kind %s", fv.Kind())
	}
	return nil
}
