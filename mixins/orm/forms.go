package orm

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
)

// BaseCreateUpdateMixin saves a form onto the looked-up object.
type BaseCreateUpdateMixin[T any] struct {
	SingleObjectMixin[T]
}

// Save populates the object from f and saves it in a transaction.
func (m *BaseCreateUpdateMixin[T]) Save(r *mixins.Request, f interface{ PopulateObj(any) error }) (*T, error) {
	obj, err := m.Object(r)
	if err != nil {
		return nil, err
	}
	db, err := m.Conn(r)
	if err != nil {
		return nil, err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := f.PopulateObj(obj); err != nil {
			return err
		}
		return tx.Save(obj).Error
	})
	if err != nil {
		r.Log.Warn("save failed", "model", fmt.Sprintf("%T", obj), "error", err)
		return nil, fmt.Errorf("save: %w", err)
	}
	return obj, nil
}

// CreateModelFormMixin creates a T from form F.
type CreateModelFormMixin[T, F any] struct {
	BaseCreateUpdateMixin[T]
	mixins.FormMixin[F]
}

// Succeed saves the object, flashes and then runs the form success step.
func (m *CreateModelFormMixin[T, F]) Succeed(r *mixins.Request, f *forms.Form[F], fallback string) error {
	obj, err := m.Save(r, f)
	if err != nil {
		return err
	}
	if err := flash.Add(r.C, flash.Success, "Successfully created "+m.Describe(obj)); err != nil {
		return err
	}
	return m.FormMixin.Success(r, f, fallback)
}

// UpdateModelFormMixin edits the looked-up T with form F, pre-filled from
// the object.
type UpdateModelFormMixin[T, F any] struct {
	BaseCreateUpdateMixin[T]
	mixins.FormMixin[F]
}

// Prepare instantiates the form from the looked-up object.
func (m *UpdateModelFormMixin[T, F]) Prepare(r *mixins.Request) (*forms.Form[F], error) {
	obj, err := m.Object(r)
	if err != nil {
		return nil, err
	}
	return m.FormMixin.Form(r, forms.WithObject(obj))
}

func (m *UpdateModelFormMixin[T, F]) Succeed(r *mixins.Request, f *forms.Form[F], fallback string) error {
	obj, err := m.Save(r, f)
	if err != nil {
		return err
	}
	if err := flash.Add(r.C, flash.Success, "Successfully updated "+m.Describe(obj)); err != nil {
		return err
	}
	return m.FormMixin.Success(r, f, fallback)
}

// UpdateModelMultiFormMixin edits the looked-up T with several forms, each
// saved on its own submit.
type UpdateModelMultiFormMixin[T any] struct {
	BaseCreateUpdateMixin[T]
	mixins.MultiFormMixin
}

// Prepare instantiates every form from the looked-up object.
func (m *UpdateModelMultiFormMixin[T]) Prepare(r *mixins.Request) ([]*mixins.LabeledForm, error) {
	obj, err := m.Object(r)
	if err != nil {
		return nil, err
	}
	return m.MultiFormMixin.Instances(r, forms.WithObject(obj))
}

func (m *UpdateModelMultiFormMixin[T]) Succeed(r *mixins.Request, lf *mixins.LabeledForm, fallback string) error {
	obj, err := m.Save(r, lf.Form)
	if err != nil {
		return err
	}
	if err := flash.Add(r.C, flash.Success, "Successfully updated "+m.Describe(obj)); err != nil {
		return err
	}
	return m.MultiFormMixin.Success(r, lf, fallback)
}
