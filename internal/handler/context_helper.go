package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

func principalFromContext(c *gin.Context) models.Principal {
	return middleware.Claims(c).Principal()
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return &value, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return value, nil
}

// queryTime accepts RFC3339 timestamps or plain dates. A plain "to" date covers the whole day.
func queryTime(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}

func queryEnum[T ~string](c *gin.Context, name string) *T {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	value := T(raw)
	return &value
}

func queryList[T ~string](c *gin.Context, name string) []T {
	var out []T
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, T(part))
			}
		}
	}
	return out
}
