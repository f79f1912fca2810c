package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	xutil "TradeScore/pkg/util"
)

// QueryInt reads an integer query parameter, def when missing or invalid.
func QueryInt(c echo.Context, key string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(key), def)
}

// QueryFloat reads a float query parameter, def when missing or invalid.
func QueryFloat(c echo.Context, key string, def float64) float64 {
	raw := c.QueryParam(key)
	if raw == "" {
		return def
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return def
	}
	return v
}

// QueryTime reads a time query parameter in any layout util.ParseTime accepts.
func QueryTime(c echo.Context, key string, def time.Time) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(key), def)
}
