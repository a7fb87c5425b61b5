package flash

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps messages server side in a Redis list keyed by an opaque
// session id cookie.
type RedisStore struct {
	rdb goredis.Cmdable

	Prefix     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func NewRedisStore(rdb goredis.Cmdable) *RedisStore {
	return &RedisStore{
		rdb:        rdb,
		Prefix:     "velox:flash:",
		CookieName: "velox_sid",
		TTL:        10 * time.Minute,
	}
}

func (s *RedisStore) Add(c *gin.Context, m Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode flash message: %w", err)
	}
	key := s.key(s.sessionID(c, true))
	ctx := c.Request.Context()
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, key, raw)
		p.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis flash add: %w", err)
	}
	return nil
}

func (s *RedisStore) Pop(c *gin.Context) ([]Message, error) {
	sid := s.sessionID(c, false)
	if sid == "" {
		return nil, nil
	}
	key := s.key(sid)
	ctx := c.Request.Context()
	var lr *goredis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		lr = p.LRange(ctx, key, 0, -1)
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis flash pop: %w", err)
	}
	var out []Message
	for _, raw := range lr.Val() {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) key(sid string) string { return s.Prefix + sid }

// sessionID returns the client's session id, issuing one when create is set.
// An id issued earlier in the same request is reused.
func (s *RedisStore) sessionID(c *gin.Context, create bool) string {
	if sid := c.GetString(s.CookieName); sid != "" {
		return sid
	}
	if raw, err := c.Cookie(s.CookieName); err == nil {
		if _, perr := uuid.Parse(raw); perr == nil {
			return raw
		}
	}
	if !create {
		return ""
	}
	sid := uuid.NewString()
	c.Set(s.CookieName, sid)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.CookieName, sid, 0, "/", "", s.Secure, true)
	return sid
}
