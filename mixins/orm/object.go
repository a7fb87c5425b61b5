package orm

import (
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/pkg/apierr"
)

const objectKey = "velox.orm.object"

// SingleObjectMixin looks up one T per request.
type SingleObjectMixin[T any] struct {
	ModelMixin[T]
	// LookupField defaults to "id". It is matched against the path
	// parameter and query key of the same name.
	LookupField string
	// LookupValue is used when the request carries no value.
	LookupValue any
}

func (m *SingleObjectMixin[T]) Field() string {
	if m.LookupField == "" {
		return "id"
	}
	return m.LookupField
}

// Value returns the lookup value: path parameter, then query string, then
// LookupValue. It returns nil when none is set.
func (m *SingleObjectMixin[T]) Value(r *mixins.Request) any {
	field := m.Field()
	if v := r.Param(field); v != "" {
		return v
	}
	if v := r.C.Query(field); v != "" {
		return v
	}
	if m.LookupValue == nil || reflect.ValueOf(m.LookupValue).IsZero() {
		return nil
	}
	return m.LookupValue
}

// LookupColumn returns the column of the lookup field.
func (m *SingleObjectMixin[T]) LookupColumn() (string, error) {
	info, err := m.Model()
	if err != nil {
		return "", err
	}
	f, ok := info.Lookup(m.Field())
	if !ok || f.DBName == "" {
		return "", fmt.Errorf("%w: %s has no field %q", mixins.ErrUnknownField, info.Name, m.Field())
	}
	return f.DBName, nil
}

// Object returns the looked-up row, or a blank T when there is no lookup
// value. A value matching no row is a 404.
func (m *SingleObjectMixin[T]) Object(r *mixins.Request) (*T, error) {
	return mixins.Memo(r, objectKey, func() (*T, error) {
		val := m.Value(r)
		if val == nil {
			return new(T), nil
		}
		col, err := m.LookupColumn()
		if err != nil {
			return nil, err
		}
		db, err := m.Conn(r)
		if err != nil {
			return nil, err
		}
		obj := new(T)
		r.Log.Debug("object lookup", "column", col, "value", val)
		err = db.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: col}, Value: val}).Take(obj).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("not_found", fmt.Errorf("no %T with %s %v", obj, col, val))
		}
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", col, err)
		}
		return obj, nil
	})
}

// ObjectMixin adds the looked-up row to the context.
type ObjectMixin[T any] struct {
	SingleObjectMixin[T]
}

// ApplyContext adds "model" and "object".
func (m *ObjectMixin[T]) ApplyContext(r *mixins.Request) error {
	if err := m.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	obj, err := m.Object(r)
	if err != nil {
		return err
	}
	r.Context.Add("object", obj)
	return nil
}
