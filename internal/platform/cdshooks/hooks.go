// Package cdshooks serves lab findings to EHRs over the CDS Hooks 2.0 REST API.
package cdshooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrInvalidRequest marks hook payloads a service cannot act on.
var ErrInvalidRequest = errors.New("invalid hook request")

// Service describes a single CDS service returned in discovery.
type Service struct {
	Hook        string            `json:"hook"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description"`
	ID          string            `json:"id"`
	Prefetch    map[string]string `json:"prefetch,omitempty"`
}

// Request is the payload POSTed to invoke a hook.
type Request struct {
	Hook         string                     `json:"hook"`
	HookInstance string                     `json:"hookInstance"`
	Context      map[string]interface{}     `json:"context"`
	Prefetch     map[string]json.RawMessage `json:"prefetch,omitempty"`
}

// Card is a single card in the hook response.
type Card struct {
	UUID      string `json:"uuid,omitempty"`
	Summary   string `json:"summary"`
	Detail    string `json:"detail,omitempty"`
	Indicator string `json:"indicator"`
	Source    Source `json:"source"`
}

type Source struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type Response struct {
	Cards []Card `json:"cards"`
}

// Feedback records what the clinician did with a card.
type Feedback struct {
	Card             string `json:"card"`
	Outcome          string `json:"outcome"`
	OutcomeTimestamp string `json:"outcomeTimestamp,omitempty"`
}

// ServiceHandler processes a hook request and returns cards.
type ServiceHandler func(ctx context.Context, req Request) (*Response, error)

// FeedbackHandler processes feedback for a service.
type FeedbackHandler func(ctx context.Context, serviceID string, fb Feedback) error

// Handler implements discovery, invocation, and feedback routes.
type Handler struct {
	services map[string]Service
	handlers map[string]ServiceHandler
	feedback map[string]FeedbackHandler
	order    []string
}

func NewHandler() *Handler {
	return &Handler{
		services: make(map[string]Service),
		handlers: make(map[string]ServiceHandler),
		feedback: make(map[string]FeedbackHandler),
	}
}

// RegisterService adds or replaces a service. Discovery lists services in
// first-registration order.
func (h *Handler) RegisterService(svc Service, handler ServiceHandler) {
	if _, exists := h.services[svc.ID]; !exists {
		h.order = append(h.order, svc.ID)
	}
	h.services[svc.ID] = svc
	h.handlers[svc.ID] = handler
}

func (h *Handler) RegisterFeedbackHandler(serviceID string, handler FeedbackHandler) {
	h.feedback[serviceID] = handler
}

// RegisterRoutes registers the CDS Hooks routes on the root Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/cds-services", h.Discovery)
	e.POST("/cds-services/:id", h.HandleHook)
	e.POST("/cds-services/:id/feedback", h.HandleFeedback)
}

func (h *Handler) Discovery(c echo.Context) error {
	services := make([]Service, 0, len(h.order))
	for _, id := range h.order {
		services = append(services, h.services[id])
	}
	return c.JSON(http.StatusOK, map[string][]Service{"services": services})
}

func (h *Handler) HandleHook(c echo.Context) error {
	id := c.Param("id")
	svc, ok := h.services[id]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown CDS service %q", id))
	}

	var req Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Hook != svc.Hook {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("hook mismatch: request hook %q does not match service hook %q", req.Hook, svc.Hook))
	}
	if req.HookInstance == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hookInstance is required")
	}

	resp, err := h.handlers[id](c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if resp.Cards == nil {
		resp.Cards = []Card{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleFeedback(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.services[id]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown CDS service %q", id))
	}

	var fb Feedback
	if err := json.NewDecoder(c.Request().Body).Decode(&fb); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid feedback body: %v", err))
	}
	if handler, ok := h.feedback[id]; ok {
		if err := handler(c.Request().Context(), id, fb); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
