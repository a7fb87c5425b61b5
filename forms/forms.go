// Package forms binds request data into plain Go structs, validates them and
// copies the result onto models.
//
// A form is any struct. Its fields are described with tags:
//
//	type AuthorForm struct {
//		Name   string `form:"name" binding:"required,max=120" label:"Full name"`
//		Email  string `form:"email" binding:"omitempty,email"`
//		Avatar fields.UploadFileField `form:"-" file:"avatar"`
//		Notes  string `form:"notes" populate:"-" input:"textarea"`
//	}
//
// form names the request key, binding holds validator rules, label the
// human label, file the multipart key for upload fields, populate the
// target field on the model ("-" to skip) and input an explicit input type.
package forms

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// FormKey is the hidden input naming which prefixed form was submitted.
const FormKey = "_form"

// NonFieldKey collects errors that do not belong to a single field.
const NonFieldKey = "_form"

const maxMultipartMemory = 32 << 20

// ObjPopulator is implemented by form field types that copy themselves onto
// a model field, for example upload fields which must first store a file.
type ObjPopulator interface {
	PopulateObj(obj any, name string) error
}

// FileReceiver is implemented by form field types that accept an uploaded
// file.
type FileReceiver interface {
	ReceiveFile(fh *multipart.FileHeader)
}

// ObjLoader is implemented by form field types that pre-fill themselves from
// a model field.
type ObjLoader interface {
	LoadFromObj(obj any, name string)
}

// Instance is the type-erased view of a Form, used where forms of different
// struct types sit side by side.
type Instance interface {
	Prefix() string
	Submitted(c *gin.Context) bool
	Process(c *gin.Context) error
	Validate() bool
	ValidateOnSubmit(c *gin.Context) bool
	Errors() map[string][]string
	HasErrors() bool
	Fields() []Field
	PopulateObj(obj any) error
	Data() any
}

// Field describes one form field for generic templates.
type Field struct {
	Name   string
	Key    string
	Label  string
	Type   string
	Value  any
	Errors []string
}

type options struct {
	obj    any
	prefix string
}

type Option func(*options)

// WithObject pre-fills the form from a model.
func WithObject(obj any) Option { return func(o *options) { o.obj = obj } }

// WithPrefix namespaces the form's request keys as "<prefix>-<key>".
func WithPrefix(prefix string) Option { return func(o *options) { o.prefix = prefix } }

// Form wraps a form struct value.
type Form[F any] struct {
	value  *F
	prefix string
	errors map[string][]string
}

// New instantiates a form. proto may carry preset field configuration (for
// example upload directories); nil means a zero F.
func New[F any](proto *F, opts ...Option) (*Form[F], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if proto == nil {
		proto = new(F)
	}
	if reflect.TypeOf(proto).Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("form type %T is not a struct", proto)
	}
	f := &Form[F]{value: proto, prefix: o.prefix, errors: map[string][]string{}}
	if o.obj != nil {
		if err := loadFromObj(f.value, o.obj); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Form[F]) Value() *F { return f.value }
func (f *Form[F]) Data() any { return f.value }
func (f *Form[F]) Prefix() string { return f.prefix }

func (f *Form[F]) Errors() map[string][]string { return f.errors }

func (f *Form[F]) HasErrors() bool { return len(f.errors) > 0 }

// AddError attaches msg to the field with the given request key.
func (f *Form[F]) AddError(key, msg string) {
	f.errors[key] = append(f.errors[key], msg)
}

func (f *Form[F]) key(k string) string {
	if f.prefix == "" {
		return k
	}
	return f.prefix + "-" + k
}

// Submitted reports whether the request submits this form: a POST, PUT or
// PATCH, naming this form's prefix in FormKey when the form is prefixed.
func (f *Form[F]) Submitted(c *gin.Context) bool {
	switch c.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	if f.prefix == "" {
		return true
	}
	return c.PostForm(FormKey) == f.prefix
}

// ValidateOnSubmit binds and validates the form if the request submits it.
func (f *Form[F]) ValidateOnSubmit(c *gin.Context) bool {
	if !f.Submitted(c) {
		return false
	}
	if err := f.Process(c); err != nil {
		f.AddError(NonFieldKey, err.Error())
		return false
	}
	return f.Validate()
}

// Process binds request values (query string and body) and uploaded files
// into the form.
func (f *Form[F]) Process(c *gin.Context) error {
	req := c.Request
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		if err := req.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := req.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}

	values := url.Values{}
	for k, v := range req.Form {
		if f.prefix == "" {
			values[k] = v
			continue
		}
		if rest, ok := strings.CutPrefix(k, f.prefix+"-"); ok {
			values[rest] = v
		}
	}
	if err := binding.MapFormWithTag(f.value, values, "form"); err != nil {
		return fmt.Errorf("bind form: %w", err)
	}

	// Unchecked checkboxes are not submitted at all.
	rv := reflect.ValueOf(f.value).Elem()
	for _, sf := range formFields(rv.Type()) {
		if sf.Type.Kind() != reflect.Bool || sf.Tag.Get("file") != "" {
			continue
		}
		if _, ok := values[requestKey(sf)]; !ok {
			rv.FieldByIndex(sf.Index).SetBool(false)
		}
	}

	var files map[string][]*multipart.FileHeader
	if req.MultipartForm != nil {
		files = req.MultipartForm.File
	}
	for _, sf := range formFields(rv.Type()) {
		key := sf.Tag.Get("file")
		if key == "" {
			continue
		}
		var fh *multipart.FileHeader
		if hs := files[f.key(key)]; len(hs) > 0 {
			fh = hs[0]
		}
		fv := rv.FieldByIndex(sf.Index)
		switch {
		case fv.Type() == reflect.TypeOf((*multipart.FileHeader)(nil)):
			fv.Set(reflect.ValueOf(fh))
		case fv.CanAddr():
			if r, ok := fv.Addr().Interface().(FileReceiver); ok {
				r.ReceiveFile(fh)
			}
		}
	}
	return nil
}

// Validate runs the binding rules and any ValidateForm hook. Errors are
// keyed by request key.
func (f *Form[F]) Validate() bool {
	if err := binding.Validator.ValidateStruct(f.value); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			t := reflect.TypeOf(f.value).Elem()
			for _, fe := range verrs {
				f.AddError(f.key(fieldKey(t, fe.StructField())), message(fe))
			}
		} else {
			f.AddError(NonFieldKey, err.Error())
		}
	}
	if hook, ok := any(f.value).(interface{ ValidateForm() map[string]string }); ok {
		for k, msg := range hook.ValidateForm() {
			f.AddError(f.key(k), msg)
		}
	}
	return !f.HasErrors()
}

// Fields lists the form's fields in declaration order.
func (f *Form[F]) Fields() []Field {
	rv := reflect.ValueOf(f.value).Elem()
	var out []Field
	for _, sf := range formFields(rv.Type()) {
		key := requestKey(sf)
		fv := rv.FieldByIndex(sf.Index)
		out = append(out, Field{
			Name:   sf.Name,
			Key:    f.key(key),
			Label:  label(sf),
			Type:   inputType(sf),
			Value:  fv.Interface(),
			Errors: f.errors[f.key(key)],
		})
	}
	return out
}

// PopulateObj copies form data onto obj, a pointer to a struct.
func (f *Form[F]) PopulateObj(obj any) error {
	target := reflect.ValueOf(obj)
	if target.Kind() != reflect.Pointer || target.IsNil() || target.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("populate target %T is not a struct pointer", obj)
	}
	target = target.Elem()
	rv := reflect.ValueOf(f.value).Elem()
	for _, sf := range formFields(rv.Type()) {
		name := populateName(sf)
		if name == "" {
			continue
		}
		fv := rv.FieldByIndex(sf.Index)
		if fv.CanAddr() {
			if p, ok := fv.Addr().Interface().(ObjPopulator); ok {
				if err := p.PopulateObj(obj, name); err != nil {
					return fmt.Errorf("populate %s: %w", name, err)
				}
				continue
			}
		}
		if fv.Type() == reflect.TypeOf((*multipart.FileHeader)(nil)) {
			continue
		}
		dst := target.FieldByName(name)
		if !dst.IsValid() || !dst.CanSet() {
			continue
		}
		assign(dst, fv)
	}
	return nil
}

func loadFromObj(form any, obj any) error {
	src := reflect.ValueOf(obj)
	for src.Kind() == reflect.Pointer {
		if src.IsNil() {
			return nil
		}
		src = src.Elem()
	}
	if src.Kind() != reflect.Struct {
		return fmt.Errorf("form object %T is not a struct", obj)
	}
	rv := reflect.ValueOf(form).Elem()
	for _, sf := range formFields(rv.Type()) {
		name := populateName(sf)
		if name == "" {
			continue
		}
		fv := rv.FieldByIndex(sf.Index)
		if l, ok := fv.Addr().Interface().(ObjLoader); ok {
			l.LoadFromObj(obj, name)
			continue
		}
		sv := src.FieldByName(name)
		if !sv.IsValid() || !fv.CanSet() {
			continue
		}
		assign(fv, sv)
	}
	return nil
}

// assign sets dst from src when the types line up, dereferencing or
// allocating pointers and converting between like kinds.
func assign(dst, src reflect.Value) {
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return
	}
	if src.Kind() == reflect.Pointer {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return
		}
		assign(dst, src.Elem())
		return
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if convertible(src.Type(), p.Elem().Type()) {
			p.Elem().Set(src.Convert(p.Elem().Type()))
			dst.Set(p)
		}
		return
	}
	if convertible(src.Type(), dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
	}
}

// convertible limits reflect conversion to like kinds, so an int never
// becomes a rune string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	return kindClass(from.Kind()) == kindClass(to.Kind()) && kindClass(from.Kind()) != 0
}

func kindClass(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	case reflect.Struct:
		return 4
	case reflect.Slice:
		return 5
	}
	return 0
}

// formFields returns the exported fields taking part in the form: those with
// a form or file tag other than a bare "-".
func formFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		formTag, hasForm := sf.Tag.Lookup("form")
		_, hasFile := sf.Tag.Lookup("file")
		if !hasForm && !hasFile {
			continue
		}
		if formTag == "-" && !hasFile {
			continue
		}
		out = append(out, sf)
	}
	return out
}

func requestKey(sf reflect.StructField) string {
	if k := sf.Tag.Get("file"); k != "" {
		return k
	}
	k, _, _ := strings.Cut(sf.Tag.Get("form"), ",")
	if k == "" {
		return sf.Name
	}
	return k
}

func fieldKey(t reflect.Type, structField string) string {
	if sf, ok := t.FieldByName(structField); ok {
		return requestKey(sf)
	}
	return structField
}

func populateName(sf reflect.StructField) string {
	p, ok := sf.Tag.Lookup("populate")
	if !ok || p == "" {
		return sf.Name
	}
	if p == "-" {
		return ""
	}
	return p
}

func label(sf reflect.StructField) string {
	if l := sf.Tag.Get("label"); l != "" {
		return l
	}
	return Humanize(sf.Name)
}

var timeType = reflect.TypeOf(time.Time{})

func inputType(sf reflect.StructField) string {
	if in := sf.Tag.Get("input"); in != "" {
		return in
	}
	if _, ok := sf.Tag.Lookup("file"); ok {
		return "file"
	}
	if strings.Contains(strings.ToLower(sf.Name), "password") {
		return "password"
	}
	t := sf.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "datetime-local"
	}
	switch kindClass(t.Kind()) {
	case 1:
		return "number"
	case 3:
		return "checkbox"
	}
	return "text"
}

// Humanize turns a Go field name into words: "FirstName" -> "First Name".
func Humanize(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slugify lowercases s, strips accents and replaces runs of anything but
// letters and digits with "-". Letters in any script are kept.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(strings.ToLower(strings.TrimSpace(s))) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Number must be at least %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Number must be at most %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Field must be exactly %s characters long.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Not a valid choice, must be one of: %s.", fe.Param())
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
