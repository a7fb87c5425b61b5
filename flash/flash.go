// Package flash stores one-shot messages for the user between requests,
// typically set just before a redirect and shown by the next page rendered.
package flash

import (
	"github.com/gin-gonic/gin"
)

const (
	storeKey   = "velox.flash.store"
	pendingKey = "velox.flash.pending"
)

// Categories used by the bundled views.
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Store persists messages for the client behind c.
type Store interface {
	Add(c *gin.Context, m Message) error
	// Pop returns and clears every pending message.
	Pop(c *gin.Context) ([]Message, error)
}

// Middleware installs store on every request so views can flash.
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(storeKey, store)
		c.Next()
	}
}

// FromContext returns the installed store, or nil.
func FromContext(c *gin.Context) Store {
	if c == nil {
		return nil
	}
	v, ok := c.Get(storeKey)
	if !ok {
		return nil
	}
	s, _ := v.(Store)
	return s
}

// Add flashes text under category. Without an installed store the message
// is dropped.
func Add(c *gin.Context, category, text string) error {
	s := FromContext(c)
	if s == nil {
		return nil
	}
	return s.Add(c, Message{Category: category, Text: text})
}

// Pop drains the installed store. Without a store it returns nil.
func Pop(c *gin.Context) ([]Message, error) {
	s := FromContext(c)
	if s == nil {
		return nil, nil
	}
	return s.Pop(c)
}

// pending tracks messages added during the current request, so a page
// rendered in the same request sees them before the cookie round-trip.
func pending(c *gin.Context) []Message {
	v, ok := c.Get(pendingKey)
	if !ok {
		return nil
	}
	msgs, _ := v.([]Message)
	return msgs
}

func setPending(c *gin.Context, msgs []Message) {
	c.Set(pendingKey, msgs)
}
