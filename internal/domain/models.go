// Package domain holds the demo site's models and admin forms.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thisissoon/velox/forms"
)

type Author struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:120;not null"`
	Email     string    `gorm:"size:255;uniqueIndex"`
	Bio       string    `gorm:"type:text"`
	CreatedAt time.Time `label:"Joined"`
	Articles  []Article
}

func (a *Author) String() string { return a.Name }

type Article struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"size:200;not null"`
	Slug        string `gorm:"size:200;uniqueIndex"`
	Body        string `gorm:"type:text"`
	AuthorID    uint   `label:"Author"`
	Author      *Author
	Published   bool
	PublishedAt *time.Time     `label:"Published on"`
	Tags        datatypes.JSON
	Cover       string         `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Article) String() string { return a.Title }

// Models lists the tables the demo migrates.
func Models() []any {
	return []any{&Author{}, &Article{}}
}

// BeforeSave keeps Slug and PublishedAt in step with Title and Published.
func (a *Article) BeforeSave(*gorm.DB) error {
	if a.Slug == "" {
		a.Slug = forms.Slugify(a.Title)
	}
	if a.Slug == "" {
		a.Slug = "article-" + uuid.NewString()[:8]
	}
	switch {
	case a.Published && a.PublishedAt == nil:
		now := time.Now().UTC()
		a.PublishedAt = &now
	case !a.Published:
		a.PublishedAt = nil
	}
	return nil
}
