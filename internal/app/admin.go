package app

import (
	"gorm.io/gorm"

	"github.com/thisissoon/velox/admin"
	adminorm "github.com/thisissoon/velox/admin/orm"
	"github.com/thisissoon/velox/fields"
	"github.com/thisissoon/velox/formatters"
	"github.com/thisissoon/velox/internal/domain"
	"github.com/thisissoon/velox/mixins"
	ormmixins "github.com/thisissoon/velox/mixins/orm"
	"github.com/thisissoon/velox/pkg/logger"
)

// AdminDeps are the services the panel views need.
type AdminDeps struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Storage fields.Storage
	Cfg     Config
}

// NewAdmin builds the panel: a dashboard plus author and article sections.
func NewAdmin(d AdminDeps) *admin.Index {
	log := logger.OrNop(d.Log)
	ix := admin.NewIndex(d.Cfg.Admin.Name)
	ix.Add(dashboard(d, log), authorsSection(d, log), articlesSection(d, log))
	return ix
}

func dashboard(d AdminDeps, log *logger.Logger) *admin.BaseView {
	home := &admin.AdminTemplateView{Log: log}
	home.Template = "admin/dashboard.html"
	home.SetContext = func(r *mixins.Request) (map[string]any, error) {
		var authors, articles, published int64
		db := d.DB.WithContext(r.C.Request.Context())
		if err := db.Model(&domain.Author{}).Count(&authors).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&domain.Article{}).Count(&articles).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&domain.Article{}).Where("published = ?", true).Count(&published).Error; err != nil {
			return nil, err
		}
		return map[string]any{
			"author_count":    authors,
			"article_count":   articles,
			"published_count": published,
		}, nil
	}
	return admin.NewBaseView("Dashboard", "/admin", "admin.home").
		Expose("/", "index", home)
}

func authorsSection(d AdminDeps, log *logger.Logger) *admin.BaseView {
	model := ormmixins.ModelMixin[domain.Author]{DB: d.DB}
	single := ormmixins.SingleObjectMixin[domain.Author]{ModelMixin: model}
	base := ormmixins.BaseCreateUpdateMixin[domain.Author]{SingleObjectMixin: single}

	table := &adminorm.AdminModelTableView[domain.Author]{Log: log}
	table.AdminTableModelMixin = adminorm.AdminTableModelMixin[domain.Author]{
		TableModelMixin: ormmixins.TableModelMixin[domain.Author]{
			ListModelMixin: ormmixins.ListModelMixin[domain.Author]{
				ModelMixin: model,
				PerPage:    d.Cfg.Admin.PerPage,
				BaseQuery:  func(db *gorm.DB) *gorm.DB { return db.Order("name") },
			},
			Columns:    []string{"Name", "Email", "CreatedAt"},
			Formatters: map[string]formatters.Func{"CreatedAt": formatters.DatetimeUTC},
		},
		WithSelected: map[string]string{"Delete selected": ".bulk"},
	}

	create := &adminorm.AdminCreateModelView[domain.Author, domain.AuthorForm]{Log: log}
	create.CreateModelFormMixin = ormmixins.CreateModelFormMixin[domain.Author, domain.AuthorForm]{BaseCreateUpdateMixin: base}

	update := &adminorm.AdminUpdateModelMultiFormView[domain.Author]{Log: log}
	update.UpdateModelMultiFormMixin = ormmixins.UpdateModelMultiFormMixin[domain.Author]{
		BaseCreateUpdateMixin: base,
		MultiFormMixin: mixins.MultiFormMixin{Forms: []mixins.NamedForm{
			mixins.FormOf[domain.AuthorDetails]("Details", nil),
			mixins.FormOf[domain.AuthorContact]("Contact", nil),
		}},
	}

	del := &adminorm.AdminDeleteObjectView[domain.Author]{Log: log}
	del.DeleteObjectMixin = ormmixins.DeleteObjectMixin[domain.Author]{SingleObjectMixin: single}

	bulk := &adminorm.AdminMultiDeleteObjectView[domain.Author]{Log: log}
	bulk.MultiDeleteObjectMixin = ormmixins.MultiDeleteObjectMixin[domain.Author]{
		DeleteObjectMixin: ormmixins.DeleteObjectMixin[domain.Author]{SingleObjectMixin: single},
	}

	return admin.NewBaseView("Authors", "/admin/authors", "admin.authors").
		Expose("/", "index", table).
		Expose("/new", "create", create).
		Expose("/:id/edit", "update", update).
		Expose("/:id/delete", "delete", del).
		Expose("/delete", "bulk", bulk)
}

func articlesSection(d AdminDeps, log *logger.Logger) *admin.BaseView {
	model := ormmixins.ModelMixin[domain.Article]{DB: d.DB}
	single := ormmixins.SingleObjectMixin[domain.Article]{ModelMixin: model}
	base := ormmixins.BaseCreateUpdateMixin[domain.Article]{SingleObjectMixin: single}
	newForm := func() *domain.ArticleForm {
		return &domain.ArticleForm{Cover: fields.UploadFileField{
			UploadTo:     "covers",
			AbsoluteBase: d.Cfg.Media.Root,
			Storage:      d.Storage,
		}}
	}

	table := &adminorm.AdminModelTableView[domain.Article]{Log: log}
	table.AdminTableModelMixin = adminorm.AdminTableModelMixin[domain.Article]{
		TableModelMixin: ormmixins.TableModelMixin[domain.Article]{
			ListModelMixin: ormmixins.ListModelMixin[domain.Article]{
				ModelMixin: model,
				PerPage:    d.Cfg.Admin.PerPage,
				BaseQuery:  func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") },
			},
			Columns: []string{"Title", "AuthorID", "Published", "PublishedAt"},
			Formatters: map[string]formatters.Func{
				"Published":   formatters.BoolIcons,
				"PublishedAt": formatters.DatetimeUTC,
			},
		},
		WithSelected: map[string]string{"Delete selected": ".bulk"},
	}

	create := &adminorm.AdminCreateModelView[domain.Article, domain.ArticleForm]{Log: log}
	create.CreateModelFormMixin = ormmixins.CreateModelFormMixin[domain.Article, domain.ArticleForm]{
		BaseCreateUpdateMixin: base,
		FormMixin:             mixins.FormMixin[domain.ArticleForm]{New: newForm},
	}

	update := &adminorm.AdminUpdateModelView[domain.Article, domain.ArticleForm]{Log: log}
	update.UpdateModelFormMixin = ormmixins.UpdateModelFormMixin[domain.Article, domain.ArticleForm]{
		BaseCreateUpdateMixin: base,
		FormMixin:             mixins.FormMixin[domain.ArticleForm]{New: newForm},
	}

	del := &adminorm.AdminDeleteObjectView[domain.Article]{Log: log}
	del.DeleteObjectMixin = ormmixins.DeleteObjectMixin[domain.Article]{SingleObjectMixin: single}

	bulk := &adminorm.AdminMultiDeleteObjectView[domain.Article]{Log: log}
	bulk.MultiDeleteObjectMixin = ormmixins.MultiDeleteObjectMixin[domain.Article]{
		DeleteObjectMixin: ormmixins.DeleteObjectMixin[domain.Article]{SingleObjectMixin: single},
	}

	return admin.NewBaseView("Articles", "/admin/articles", "admin.articles").
		Expose("/", "index", table).
		Expose("/new", "create", create).
		Expose("/:id/edit", "update", update).
		Expose("/:id/delete", "delete", del).
		Expose("/delete", "bulk", bulk)
}
