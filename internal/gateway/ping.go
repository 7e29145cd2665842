package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hearth-chat/hearth/internal/protocol"
)

// PingResult is the outcome of a homeserver health check
type PingResult struct {
	ServerName string
	Status     string
	Latency    time.Duration
	Timestamp  time.Time
}

// Ping checks that a homeserver answers its health endpoint
func Ping(ctx context.Context, homeserver string, timeout time.Duration) (*PingResult, error) {
	u, err := ParseHomeserver(homeserver)
	if err != nil {
		return nil, err
	}
	s := NewSession(u, "", "")
	s.client.Timeout = timeout

	start := time.Now()
	var resp protocol.HealthResponse
	if err := s.do(ctx, http.MethodGet, []string{"health"}, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return &PingResult{
		ServerName: resp.ServerName,
		Status:     resp.Status,
		Latency:    time.Since(start),
		Timestamp:  time.Now(),
	}, nil
}
