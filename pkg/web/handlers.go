// Package web provides the HTTP surface of the automation engine: rule CRUD,
// run triggering and history, and the domain-event ingestion endpoint.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/relaycrm/relay/pkg/dispatcher"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/services"
)

// TenantHeader carries the authenticated tenant identifier. Authentication
// itself happens upstream; the API trusts this header.
const TenantHeader = "X-Tenant-ID"

type APIHandlers struct {
	ruleService *services.Rule
	runService  *services.Run
	dispatcher  *dispatcher.Dispatcher
	validator   *validator.Validate
}

func NewAPIHandlers(
	ruleService *services.Rule,
	runService *services.Run,
	dispatcher *dispatcher.Dispatcher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		ruleService: ruleService,
		runService:  runService,
		dispatcher:  dispatcher,
		validator:   validator,
	}
}

// RegisterRoutes mounts all automation endpoints on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api")
	api.Get("/automation-rules", h.ListRules)
	api.Post("/automation-rules", h.CreateRule)
	api.Get("/automation-rules/:id", h.GetRule)
	api.Patch("/automation-rules/:id", h.UpdateRule)
	api.Delete("/automation-rules/:id", h.DeleteRule)

	api.Post("/automation-runs/trigger", h.TriggerRun)
	api.Get("/automation-runs", h.ListRuns)
	api.Get("/automation-runs/:id", h.GetRun)

	api.Post("/automation-events", h.FireEvent)
}

func (h *APIHandlers) tenantID(c fiber.Ctx) string {
	return c.Get(TenantHeader)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.ruleService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	rules, err := h.ruleService.List(c.Context(), tenantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	rule, err := h.ruleService.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	var req CreateRuleRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	rule := &models.AutomationRule{
		TenantID:   tenantID,
		Name:       req.Name,
		Enabled:    req.Enabled,
		Definition: req.Definition,
	}

	created, err := h.ruleService.Create(c.Context(), rule)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	var req UpdateRuleRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.ruleService.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if req.Definition != nil {
		existing.Definition = req.Definition
	}

	updated, err := h.ruleService.Update(c.Context(), existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	err := h.ruleService.Delete(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerRun enqueues a manual "run now" with an empty trigger payload.
func (h *APIHandlers) TriggerRun(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	var req TriggerRunRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = h.runService.Trigger(c.Context(), tenantID, req.RuleID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "enqueued"})
}

// ListRuns returns run history for a rule, newest first.
func (h *APIHandlers) ListRuns(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	ruleID := c.Query("ruleId")
	if ruleID == "" {
		return badRequest(c, "ruleId query parameter is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	runs, err := h.runService.List(c.Context(), tenantID, ruleID, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	run, err := h.runService.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// FireEvent ingests a domain mutation event. Dispatch is fire-and-forget: the
// response reports how many rules matched, and dispatch failures never fail
// the request.
func (h *APIHandlers) FireEvent(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant header is required")
	}

	var req FireEventRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	matches := h.dispatcher.FireEvent(c.Context(), req.Event, req.Payload, tenantID)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"matches": matches})
}
