// Package orm provides gorm-backed mixins: model metadata, single-object
// lookup, paginated listing, tables, deletes and create/update forms.
package orm

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/thisissoon/velox/mixins"
)

var schemaCache sync.Map

// FieldInfo describes one mapped field of a model.
type FieldInfo struct {
	Name       string
	Column     string
	Label      string
	PrimaryKey bool
}

// ModelInfo is the parsed metadata of a model type.
type ModelInfo struct {
	Name       string
	Table      string
	PrimaryKey string
	Fields     []FieldInfo

	schema *schema.Schema
}

// Lookup finds a field by Go name or column name.
func (m *ModelInfo) Lookup(name string) (*schema.Field, bool) {
	if m == nil || m.schema == nil {
		return nil, false
	}
	f := m.schema.LookUpField(name)
	return f, f != nil
}

// ModelMixin binds a view to model type T and a gorm session.
type ModelMixin[T any] struct {
	DB *gorm.DB
	// PKField defaults to "id".
	PKField string
}

// Session returns the configured gorm session.
func (m *ModelMixin[T]) Session() (*gorm.DB, error) {
	if m.DB == nil {
		return nil, mixins.NotImplemented("session attribute required")
	}
	return m.DB, nil
}

// Conn returns the session bound to the request context.
func (m *ModelMixin[T]) Conn(r *mixins.Request) (*gorm.DB, error) {
	db, err := m.Session()
	if err != nil {
		return nil, err
	}
	return db.WithContext(r.C.Request.Context()), nil
}

func (m *ModelMixin[T]) PK() string {
	if m.PKField == "" {
		return "id"
	}
	return m.PKField
}

// Model parses T into ModelInfo.
func (m *ModelMixin[T]) Model() (*ModelInfo, error) {
	var namer schema.Namer = schema.NamingStrategy{}
	if m.DB != nil && m.DB.Config != nil && m.DB.NamingStrategy != nil {
		namer = m.DB.NamingStrategy
	}
	s, err := schema.Parse(new(T), &schemaCache, namer)
	if err != nil {
		return nil, fmt.Errorf("parse model %T: %w", new(T), err)
	}
	info := &ModelInfo{Name: s.Name, Table: s.Table, schema: s}
	if pk := s.PrioritizedPrimaryField; pk != nil {
		info.PrimaryKey = pk.DBName
	}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		info.Fields = append(info.Fields, FieldInfo{
			Name:       f.Name,
			Column:     f.DBName,
			Label:      f.Tag.Get("label"),
			PrimaryKey: f.PrimaryKey,
		})
	}
	return info, nil
}

// ApplyContext adds the model metadata under "model", the primary key
// param name under "pk_name" and the "object_pk" helper.
func (m *ModelMixin[T]) ApplyContext(r *mixins.Request) error {
	info, err := m.Model()
	if err != nil {
		return err
	}
	r.Context.Merge(map[string]any{
		"model":     info,
		"pk_name":   m.PK(),
		"object_pk": m.PrimaryKey,
	})
	return nil
}

// PrimaryKey returns the primary key value of obj, nil when it has none.
func (m *ModelMixin[T]) PrimaryKey(obj *T) any {
	v, _, err := m.primaryKey(context.Background(), obj)
	if err != nil {
		return nil
	}
	return v
}

// primaryKey returns the primary key value of obj and whether it is zero.
func (m *ModelMixin[T]) primaryKey(ctx context.Context, obj *T) (any, bool, error) {
	info, err := m.Model()
	if err != nil {
		return nil, true, err
	}
	f, ok := info.Lookup(m.PK())
	if !ok {
		f = info.schema.PrioritizedPrimaryField
	}
	if f == nil {
		return nil, true, fmt.Errorf("%w: %s has no primary key", mixins.ErrUnknownField, info.Name)
	}
	v, zero := f.ValueOf(ctx, reflect.ValueOf(obj).Elem())
	return v, zero, nil
}

// Describe names obj for user messages: its String method when it has one,
// otherwise "<Model> <pk>".
func (m *ModelMixin[T]) Describe(obj *T) string {
	if s, ok := any(obj).(fmt.Stringer); ok {
		return s.String()
	}
	info, err := m.Model()
	if err != nil {
		return fmt.Sprintf("%T", obj)
	}
	pk, _, err := m.primaryKey(context.Background(), obj)
	if err != nil {
		return info.Name
	}
	return fmt.Sprintf("%s %v", info.Name, pk)
}
