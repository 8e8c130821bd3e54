package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// PoolStatus is the connection usage reported by /health/db.
type PoolStatus struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// DBStatus is the body returned by /health/db.
type DBStatus struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Error   string      `json:"error,omitempty"`
	Pool    *PoolStatus `json:"pool,omitempty"`
}

// HealthHandler pings the pool and reports its usage alongside the running
// engine version. An unreachable database answers 503.
func HealthHandler(pool *pgxpool.Pool, version string) echo.HandlerFunc {
	return healthHandler(pool, func() *PoolStatus {
		s := pool.Stat()
		return &PoolStatus{
			Total:    s.TotalConns(),
			Idle:     s.IdleConns(),
			Acquired: s.AcquiredConns(),
			Max:      s.MaxConns(),
		}
	}, version)
}

func healthHandler(p pinger, stats func() *PoolStatus, version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		body := DBStatus{Status: "healthy", Version: version, Pool: stats()}
		if err := p.Ping(ctx); err != nil {
			body.Status = "unhealthy"
			body.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}
