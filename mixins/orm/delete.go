package orm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/pkg/apierr"
)

const multiObjectsKey = "velox.orm.delete.objects"

// DeleteObjectMixin deletes the looked-up object once the request
// confirms it.
type DeleteObjectMixin[T any] struct {
	SingleObjectMixin[T]
	// SkipConfirm deletes without the confirm query parameter.
	SkipConfirm     bool
	RedirectURLRule string
	// RedirectCode defaults to 302.
	RedirectCode int
}

// CanDelete reports whether the request confirmed the delete.
func (m *DeleteObjectMixin[T]) CanDelete(r *mixins.Request) bool {
	if m.SkipConfirm {
		return true
	}
	return r.C.Query("confirm") != ""
}

// ApplyContext adds "model" and "object".
func (m *DeleteObjectMixin[T]) ApplyContext(r *mixins.Request) error {
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

// Delete removes the object when confirmed, flashes and redirects to
// RedirectURLRule, or fallback when that is empty. It reports whether a
// response was written.
func (m *DeleteObjectMixin[T]) Delete(r *mixins.Request, fallback string) (bool, error) {
	if !m.CanDelete(r) {
		return false, nil
	}
	obj, err := m.Object(r)
	if err != nil {
		return false, err
	}
	if _, zero, err := m.primaryKey(r.C.Request.Context(), obj); err != nil {
		return false, err
	} else if zero {
		return false, apierr.NotFound("not_found", errors.New("nothing to delete"))
	}
	db, err := m.Conn(r)
	if err != nil {
		return false, err
	}
	desc := m.Describe(obj)
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(obj).Error
	}); err != nil {
		r.Log.Warn("delete failed", "object", desc, "error", err)
		return false, fmt.Errorf("delete %s: %w", desc, err)
	}
	if err := flash.Add(r.C, flash.Success, desc+" was successfully deleted"); err != nil {
		return false, err
	}
	return true, mixins.RedirectTo(r, m.RedirectURLRule, fallback, m.RedirectCode)
}

// MultiDeleteObjectMixin deletes every object named by the repeated
// "objects" parameter.
type MultiDeleteObjectMixin[T any] struct {
	DeleteObjectMixin[T]
}

// Values returns the "objects" values from the query string and form body.
func (m *MultiDeleteObjectMixin[T]) Values(r *mixins.Request) []string {
	vals := r.C.QueryArray("objects")
	return append(vals, r.C.PostFormArray("objects")...)
}

// Objects returns the rows whose lookup field is one of Values.
func (m *MultiDeleteObjectMixin[T]) Objects(r *mixins.Request) ([]*T, error) {
	return mixins.Memo(r, multiObjectsKey, func() ([]*T, error) {
		vals := m.Values(r)
		col, err := m.LookupColumn()
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return []*T{}, nil
		}
		db, err := m.Conn(r)
		if err != nil {
			return nil, err
		}
		in := make([]any, len(vals))
		for i, v := range vals {
			in[i] = v
		}
		var objs []*T
		err = db.Where(clause.IN{Column: clause.Column{Table: clause.CurrentTable, Name: col}, Values: in}).Find(&objs).Error
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", col, err)
		}
		return objs, nil
	})
}

// ApplyContext adds "model" and "objects".
func (m *MultiDeleteObjectMixin[T]) ApplyContext(r *mixins.Request) error {
	if err := m.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	objs, err := m.Objects(r)
	if err != nil {
		return err
	}
	r.Context.Add("objects", objs)
	return nil
}

// Delete removes every object in one transaction when confirmed, flashes
// the count and redirects.
func (m *MultiDeleteObjectMixin[T]) Delete(r *mixins.Request, fallback string) (bool, error) {
	if !m.CanDelete(r) {
		return false, nil
	}
	objs, err := m.Objects(r)
	if err != nil {
		return false, err
	}
	db, err := m.Conn(r)
	if err != nil {
		return false, err
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		for _, obj := range objs {
			if err := tx.Delete(obj).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		r.Log.Warn("multi delete failed", "count", len(objs), "error", err)
		return false, fmt.Errorf("delete objects: %w", err)
	}
	if err := flash.Add(r.C, flash.Success, fmt.Sprintf("%d objects successfully deleted", len(objs))); err != nil {
		return false, err
	}
	return true, mixins.RedirectTo(r, m.RedirectURLRule, fallback, m.RedirectCode)
}
