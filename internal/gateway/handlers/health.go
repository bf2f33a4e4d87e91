package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что приложение работает
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// StartupProbe проверяет, что приложение успешно запустилось
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}

// Readiness опрашивает /health/ready у апстримов.
type Readiness struct {
	upstreams map[string]string
	client    *http.Client
}

func NewReadiness(upstreams map[string]string) *Readiness {
	return &Readiness{
		upstreams: upstreams,
		client:    &http.Client{Timeout: 2 * time.Second},
	}
}

// ReadinessProbe: 503, если хотя бы один апстрим не готов.
func (r *Readiness) ReadinessProbe(c fiber.Ctx) error {
	names := make([]string, 0, len(r.upstreams))
	for name := range r.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	report := fiber.Map{}
	for _, name := range names {
		if r.ping(c.Context(), r.upstreams[name]) {
			report[name] = "ready"
			continue
		}
		report[name] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":    overall,
		"upstreams": report,
	})
}

func (r *Readiness) ping(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health/ready", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
