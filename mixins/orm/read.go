package orm

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/thisissoon/velox/formatters"
	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/pkg/apierr"
)

const (
	objectsKey    = "velox.orm.objects"
	paginationKey = "velox.orm.pagination"

	defaultPerPage = 30
)

// ListModelMixin lists rows of T, paginated by default.
type ListModelMixin[T any] struct {
	ModelMixin[T]
	// BaseQuery narrows or orders the listing. Nil lists every row.
	BaseQuery  func(db *gorm.DB) *gorm.DB
	NoPaginate bool
	// PerPage defaults to 30.
	PerPage int
}

func (m *ListModelMixin[T]) PerPageCount() int {
	if m.PerPage <= 0 {
		return defaultPerPage
	}
	return m.PerPage
}

// Page reads the page query parameter, 1 when absent. A present but
// blank value is rejected like any other non-number.
func (m *ListModelMixin[T]) Page(r *mixins.Request) (int, error) {
	raw, ok := r.C.GetQuery("page")
	if !ok {
		return 1, nil
	}
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apierr.BadRequest("invalid_page", errors.New("page GET param must be number"))
	}
	return page, nil
}

// Query is the base query for the listing.
func (m *ListModelMixin[T]) Query(r *mixins.Request) (*gorm.DB, error) {
	db, err := m.Conn(r)
	if err != nil {
		return nil, err
	}
	q := db.Model(new(T))
	if m.BaseQuery != nil {
		q = m.BaseQuery(q)
	}
	return q, nil
}

// Objects returns the rows for this request and, unless NoPaginate is set,
// the pagination they belong to.
func (m *ListModelMixin[T]) Objects(r *mixins.Request) ([]*T, *Pagination[T], error) {
	items, err := mixins.Memo(r, objectsKey, func() ([]*T, error) {
		q, err := m.Query(r)
		if err != nil {
			return nil, err
		}
		if m.NoPaginate {
			var items []*T
			if err := q.Find(&items).Error; err != nil {
				return nil, fmt.Errorf("list: %w", err)
			}
			return items, nil
		}
		p, err := m.paginate(r, q)
		if err != nil {
			return nil, err
		}
		r.Set(paginationKey, p)
		return p.Items, nil
	})
	if err != nil {
		return nil, nil, err
	}
	var p *Pagination[T]
	if v, ok := r.Value(paginationKey); ok {
		p, _ = v.(*Pagination[T])
	}
	return items, p, nil
}

func (m *ListModelMixin[T]) paginate(r *mixins.Request, q *gorm.DB) (*Pagination[T], error) {
	page, err := m.Page(r)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, apierr.NotFound("page_not_found", fmt.Errorf("page %d does not exist", page))
	}
	p := &Pagination[T]{Page: page, PerPage: m.PerPageCount()}
	if err := q.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if page > 1 && page > p.Pages() {
		return nil, apierr.NotFound("page_not_found", fmt.Errorf("page %d does not exist", page))
	}
	if err := q.Session(&gorm.Session{}).Offset((page - 1) * p.PerPage).Limit(p.PerPage).Find(&p.Items).Error; err != nil {
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}
	return p, nil
}

// ApplyContext adds "model", "objects" and "pagination".
func (m *ListModelMixin[T]) ApplyContext(r *mixins.Request) error {
	if err := m.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	items, p, err := m.Objects(r)
	if err != nil {
		return err
	}
	r.Context.Add("objects", items)
	r.Context.Add("pagination", p)
	return nil
}

// TableModelMixin renders a listing as a table of Columns.
type TableModelMixin[T any] struct {
	ListModelMixin[T]
	// Columns are Go field names or column names.
	Columns    []string
	Formatters map[string]formatters.Func
}

func (m *TableModelMixin[T]) ColumnList() ([]string, error) {
	if len(m.Columns) == 0 {
		return nil, mixins.NotImplemented("columns is not defined")
	}
	return m.Columns, nil
}

var titleCaser = cases.Title(language.Und)

// ColumnName returns the label of a column: its label tag, otherwise the
// name with underscores as spaces, title-cased.
func (m *TableModelMixin[T]) ColumnName(name string) string {
	if info, err := m.Model(); err == nil {
		if f, ok := info.Lookup(name); ok {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// FormatValue reads field from instance and applies its formatter.
func (m *TableModelMixin[T]) FormatValue(field string, instance any) any {
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	var fv reflect.Value
	if rv.Kind() == reflect.Struct {
		fv = rv.FieldByName(field)
		if !fv.IsValid() {
			if info, err := m.Model(); err == nil {
				if f, ok := info.Lookup(field); ok {
					fv = rv.FieldByName(f.Name)
				}
			}
		}
	}
	if !fv.IsValid() || !fv.CanInterface() {
		return "Invalid Attribute: " + field
	}
	value := fv.Interface()
	if format, ok := m.Formatters[field]; ok && format != nil {
		return format(value)
	}
	return value
}

// ApplyContext adds the listing plus "columns", "column_name" and
// "format_value".
func (m *TableModelMixin[T]) ApplyContext(r *mixins.Request) error {
	if err := m.ListModelMixin.ApplyContext(r); err != nil {
		return err
	}
	cols, err := m.ColumnList()
	if err != nil {
		return err
	}
	r.Context.Merge(map[string]any{
		"columns":      cols,
		"column_name":  m.ColumnName,
		"format_value": m.FormatValue,
	})
	return nil
}
