package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/smartflow/backend/internal/config"
)

// captureWriter tees the response body into a buffer, up to limit
// bytes, while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.buf.Len()+len(b) <= cw.limit {
			cw.buf.Write(b)
		} else {
			cw.over = true // too large to cache; keep serving
		}
	}
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches successful responses of configured methods in
// Redis, keyed by user, route and query so listings never leak across
// users. Disabled or unreachable Redis means pass-through.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if !cfg.Methods[r.Method] {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)
			ctx := r.Context()

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && !cw.over && cw.buf.Len() > 0 {
				_ = rdb.Set(ctx, key, cw.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}

func cacheKey(prefix string, c echo.Context) string {
	uid := "anon"
	if v := c.Get("user_id"); v != nil {
		uid = fmt.Sprint(v)
	}
	r := c.Request()
	return strings.Join([]string{prefix, "u", uid, "route", c.Path(), "q", r.URL.RawQuery}, ":")
}
