package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// PoolStats is a snapshot of connection pool counters for the health
// endpoint.
type PoolStats struct {
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	WaitDuration  string `json:"wait_duration"`
}

type healthResponse struct {
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Pool   *PoolStats `json:"pool"`
}

func snapshotStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
		WaitDuration:  stat.AcquireDuration().String(),
	}
}

// HealthHandler pings the database and reports pool statistics. A failed
// ping returns 503 so load balancers can pull the instance.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
				Pool:   snapshotStats(pool),
			})
		}

		return c.JSON(http.StatusOK, healthResponse{
			Status: "healthy",
			Pool:   snapshotStats(pool),
		})
	}
}
