package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/datatypes"

	"github.com/thisissoon/velox/fields"
)

type AuthorForm struct {
	Name  string `form:"name" binding:"required,max=120"`
	Email string `form:"email" binding:"required,email"`
	Bio   string `form:"bio" input:"textarea"`
}

type ArticleForm struct {
	Title     string                 `form:"title" binding:"required,max=200"`
	Body      string                 `form:"body" input:"textarea"`
	AuthorID  uint                   `form:"author_id" binding:"required" label:"Author"`
	Published bool                   `form:"published"`
	Tags      TagList                `form:"tags"`
	Cover     fields.UploadFileField `form:"-" file:"cover" label:"Cover image"`
}

// ValidateForm rejects tag lists that are too long to be useful.
func (f *ArticleForm) ValidateForm() map[string]string {
	if n := len(f.Tags.Split()); n > 10 {
		return map[string]string{"tags": fmt.Sprintf("At most 10 tags, got %d.", n)}
	}
	return nil
}

// AuthorDetails and AuthorContact split the author edit page into two
// forms.
type AuthorDetails struct {
	Name string `form:"name" binding:"required,max=120"`
	Bio  string `form:"bio" input:"textarea"`
}

type AuthorContact struct {
	Email string `form:"email" binding:"required,email"`
}

// ContactForm is the public site's contact form. It is not backed by a
// model.
type ContactForm struct {
	Name    string `form:"name" binding:"required,max=120"`
	Email   string `form:"email" binding:"required,email"`
	Message string `form:"message" binding:"required,min=10" input:"textarea"`
}

// TagList is a comma separated list of tags bound to a datatypes.JSON
// model field holding a JSON array of strings.
type TagList string

func (t TagList) Split() []string {
	var out []string
	for _, tag := range strings.Split(string(t), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// LoadFromObj implements forms.ObjLoader.
func (t *TagList) LoadFromObj(obj any, name string) {
	fv, ok := jsonField(obj, name)
	if !ok || len(fv) == 0 {
		return
	}
	var tags []string
	if err := json.Unmarshal(fv, &tags); err != nil {
		return
	}
	*t = TagList(strings.Join(tags, ", "))
}

// PopulateObj implements forms.ObjPopulator.
func (t *TagList) PopulateObj(obj any, name string) error {
	tags := t.Split()
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("populate %s: %T is not a struct pointer", name, obj)
	}
	fv := rv.Elem().FieldByName(name)
	if !fv.IsValid() || !fv.CanSet() || fv.Type() != reflect.TypeOf(datatypes.JSON{}) {
		return fmt.Errorf("populate %s: not a datatypes.JSON field", name)
	}
	fv.Set(reflect.ValueOf(datatypes.JSON(raw)))
	return nil
}

func jsonField(obj any, name string) (datatypes.JSON, bool) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	fv := rv.FieldByName(name)
	if !fv.IsValid() {
		return nil, false
	}
	v, ok := fv.Interface().(datatypes.JSON)
	return v, ok
}
