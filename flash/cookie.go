package flash

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const loadedKey = "velox.flash.loaded"

// CookieStore keeps pending messages client side in an HS256-signed token,
// so a tampered cookie is discarded rather than displayed.
type CookieStore struct {
	secret []byte

	Name   string
	Path   string
	TTL    time.Duration
	Secure bool
}

func NewCookieStore(secret []byte) (*CookieStore, error) {
	if len(secret) == 0 {
		return nil, errors.New("flash cookie secret required")
	}
	return &CookieStore{
		secret: secret,
		Name:   "velox_flash",
		Path:   "/",
		TTL:    10 * time.Minute,
	}, nil
}

type cookieClaims struct {
	Messages []Message `json:"msgs"`
	jwt.RegisteredClaims
}

func (s *CookieStore) Add(c *gin.Context, m Message) error {
	msgs := append(s.load(c), m)
	setPending(c, msgs)

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cookieClaims{
		Messages: msgs,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign flash cookie: %w", err)
	}
	replaceCookie(c, &http.Cookie{
		Name:     s.Name,
		Value:    signed,
		Path:     s.Path,
		MaxAge:   int(s.TTL.Seconds()),
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) Pop(c *gin.Context) ([]Message, error) {
	msgs := s.load(c)
	setPending(c, nil)
	if _, err := c.Cookie(s.Name); err == nil || len(msgs) > 0 {
		replaceCookie(c, &http.Cookie{
			Name:     s.Name,
			Path:     s.Path,
			MaxAge:   -1,
			Secure:   s.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs, nil
}

// load merges the request cookie into the pending list once per request.
func (s *CookieStore) load(c *gin.Context) []Message {
	if c.GetBool(loadedKey) {
		return pending(c)
	}
	c.Set(loadedKey, true)
	var msgs []Message
	if raw, err := c.Cookie(s.Name); err == nil && raw != "" {
		msgs = s.decode(raw)
	}
	msgs = append(msgs, pending(c)...)
	setPending(c, msgs)
	return msgs
}

func (s *CookieStore) decode(raw string) []Message {
	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil
	}
	return claims.Messages
}

// replaceCookie sets ck, dropping any Set-Cookie for the same name already
// queued on the response so repeated adds leave a single cookie.
func replaceCookie(c *gin.Context, ck *http.Cookie) {
	h := c.Writer.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, ck.Name+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(c.Writer, ck)
}
