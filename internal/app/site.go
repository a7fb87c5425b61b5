package app

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/internal/domain"
	"github.com/thisissoon/velox/mixins"
	ormmixins "github.com/thisissoon/velox/mixins/orm"
	"github.com/thisissoon/velox/pkg/apierr"
	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
	"github.com/thisissoon/velox/views"
	ormviews "github.com/thisissoon/velox/views/orm"
)

const recentArticles = 5

func published(db *gorm.DB) *gorm.DB {
	return db.Where("published = ?", true).Order("published_at desc")
}

// Site returns the registration func for the public pages.
func Site(log *logger.Logger, db *gorm.DB) func(rt *routing.Router) error {
	log = logger.OrNop(log)
	return func(rt *routing.Router) error {
		home := &views.TemplateView{Log: log}
		home.Template = "site/home.html"
		home.Context = map[string]any{"title": "Home"}
		home.SetContext = func(r *mixins.Request) (map[string]any, error) {
			var recent []domain.Article
			err := published(db.WithContext(r.C.Request.Context())).
				Limit(recentArticles).
				Find(&recent).Error
			if err != nil {
				return nil, fmt.Errorf("recent articles: %w", err)
			}
			return map[string]any{"recent": recent}, nil
		}
		if err := rt.Add("home", "/", home); err != nil {
			return err
		}

		articles := rt.Group("articles", "/articles")

		list := &ormviews.ModelListView[domain.Article]{Log: log}
		list.Template = "site/articles.html"
		list.Context = map[string]any{"title": "Articles"}
		list.ListModelMixin = ormmixins.ListModelMixin[domain.Article]{
			ModelMixin: ormmixins.ModelMixin[domain.Article]{DB: db},
			BaseQuery:  published,
			PerPage:    10,
		}
		if err := articles.Add("index", "/", list); err != nil {
			return err
		}

		detail := &ormviews.ObjectView[domain.Article]{Log: log}
		detail.Template = "site/article.html"
		detail.ObjectMixin = ormmixins.ObjectMixin[domain.Article]{
			SingleObjectMixin: ormmixins.SingleObjectMixin[domain.Article]{
				ModelMixin:  ormmixins.ModelMixin[domain.Article]{DB: db},
				LookupField: "slug",
			},
		}
		detail.SetContext = func(r *mixins.Request) (map[string]any, error) {
			obj, err := detail.Object(r)
			if err != nil {
				return nil, err
			}
			if !obj.Published {
				return nil, apierr.NotFound("not_found", errors.New("article not found"))
			}
			var author domain.Author
			if err := db.WithContext(r.C.Request.Context()).First(&author, obj.AuthorID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("article author: %w", err)
			}
			return map[string]any{"title": obj.Title, "author": &author}, nil
		}
		if err := articles.Add("detail", "/:slug", detail); err != nil {
			return err
		}

		contact := &views.FormView[domain.ContactForm]{Log: log}
		contact.Template = "site/contact.html"
		contact.Context = map[string]any{"title": "Contact"}
		contact.OnSuccess = func(r *mixins.Request, f *forms.Form[domain.ContactForm]) error {
			msg := f.Value()
			r.Log.Info("contact message received", "name", msg.Name, "email", msg.Email)
			if err := flash.Add(r.C, flash.Success, "Thanks "+msg.Name+", we will be in touch."); err != nil {
				return err
			}
			return mixins.RedirectTo(r, "contact", "", 0)
		}
		if err := rt.Add("contact", "/contact", contact); err != nil {
			return err
		}

		manage := &views.RedirectView{Log: log}
		manage.Rule = "admin.home.index"
		return rt.Add("manage", "/manage", manage)
	}
}
