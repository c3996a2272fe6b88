package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		spam := v1.Group("/rules/spam")
		{
			spam.GET("", h.ListSpamRules)
			spam.POST("", h.CreateSpamRule)
			spam.GET("/:id", h.GetSpamRule)
			spam.PUT("/:id", h.UpdateSpamRule)
			spam.DELETE("/:id", h.DeleteSpamRule)
			spam.GET("/:id/versions", h.GetRuleVersions)
			spam.GET("/:id/audit", h.GetSpamRuleAuditLogs)
		}

		routing := v1.Group("/rules/routing")
		{
			routing.GET("", h.ListRoutingRules)
			routing.POST("", h.CreateRoutingRule)
			routing.GET("/:id", h.GetRoutingRule)
			routing.PUT("/:id", h.UpdateRoutingRule)
			routing.DELETE("/:id", h.DeleteRoutingRule)
			routing.GET("/:id/versions", h.GetRuleVersions)
			routing.GET("/:id/audit", h.GetRoutingRuleAuditLogs)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListSpamRules godoc
// @Summary      List all spam rules
// @Description  Get a list of all spam detection rules
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}    SpamRule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/spam [get]
func (h *Handler) ListSpamRules(c *gin.Context) {
	rules, err := h.Service.ListSpamRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateSpamRule godoc
// @Summary      Create a new spam rule
// @Description  Create a new spam detection rule with the provided data
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Param        rule  body       CreateSpamRuleRequest  true  "Spam rule data"
// @Success      201   {object}   SpamRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/spam [post]
func (h *Handler) CreateSpamRule(c *gin.Context) {
	var req CreateSpamRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateSpamRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetSpamRule godoc
// @Summary      Get a spam rule by ID
// @Description  Get a specific spam rule by its ID
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}   SpamRule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/spam/{id} [get]
func (h *Handler) GetSpamRule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.Service.GetSpamRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateSpamRule godoc
// @Summary      Update a spam rule
// @Description  Update an existing spam rule by ID
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Rule ID"
// @Param        rule  body       UpdateSpamRuleRequest  true  "Updated rule data"
// @Success      200   {object}   SpamRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/spam/{id} [put]
func (h *Handler) UpdateSpamRule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSpamRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateSpamRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteSpamRule godoc
// @Summary      Delete a spam rule
// @Description  Delete a spam rule by ID
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/spam/{id} [delete]
func (h *Handler) DeleteSpamRule(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteSpamRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListRoutingRules godoc
// @Summary      List all routing rules
// @Description  Get the full routing table in evaluation order
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}    RoutingRule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing [get]
func (h *Handler) ListRoutingRules(c *gin.Context) {
	rules, err := h.Service.ListRoutingRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRoutingRule godoc
// @Summary      Create a new routing rule
// @Description  Create a new routing rule with the provided data
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        rule  body       CreateRoutingRuleRequest  true  "Routing rule data"
// @Success      201   {object}   RoutingRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing [post]
func (h *Handler) CreateRoutingRule(c *gin.Context) {
	var req CreateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRoutingRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRoutingRule godoc
// @Summary      Get a routing rule by ID
// @Description  Get a specific routing rule by its ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}   RoutingRule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [get]
func (h *Handler) GetRoutingRule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.Service.GetRoutingRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRoutingRule godoc
// @Summary      Update a routing rule
// @Description  Update an existing routing rule by ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Rule ID"
// @Param        rule  body       UpdateRoutingRuleRequest  true  "Updated rule data"
// @Success      200   {object}   RoutingRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [put]
func (h *Handler) UpdateRoutingRule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateRoutingRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRoutingRule godoc
// @Summary      Delete a routing rule
// @Description  Delete a routing rule by ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [delete]
func (h *Handler) DeleteRoutingRule(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteRoutingRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRuleVersions godoc
// @Summary      Get rule version history
// @Description  Get version history for a specific rule
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {array}   RuleVersion
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/spam/{id}/versions [get]
func (h *Handler) GetRuleVersions(c *gin.Context) {
	id := c.Param("id")
	versions, err := h.Service.GetRuleVersions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// GetSpamRuleAuditLogs godoc
// @Summary      Get audit logs for a spam rule
// @Description  Get audit logs for a specific spam rule
// @Tags         spam-rules
// @Accept       json
// @Produce      json
// @Param        id     path      string  true   "Rule ID"
// @Param        limit  query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200    {array}   AuditLog
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /rules/spam/{id}/audit [get]
func (h *Handler) GetSpamRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), &id, RuleTypeSpam, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetRoutingRuleAuditLogs godoc
// @Summary      Get audit logs for a routing rule
// @Description  Get audit logs for a specific routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id     path      string  true   "Rule ID"
// @Param        limit  query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200    {array}   AuditLog
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /rules/routing/{id}/audit [get]
func (h *Handler) GetRoutingRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), &id, RuleTypeRouting, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Get audit logs with optional filtering by rule ID and rule type
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        rule_id    query     string  false  "Filter by rule ID"
// @Param        rule_type  query     string  false  "Filter by rule type (spam, routing)"
// @Param        limit      query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200        {array}   AuditLog
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	ruleID := c.Query("rule_id")
	ruleType := c.Query("rule_type")
	limit := parseLimit(c.Query("limit"))

	var ruleIDPtr *string
	if ruleID != "" {
		ruleIDPtr = &ruleID
	}

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), ruleIDPtr, ruleType, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

type DeadLetterHandler struct {
	BaseHandler
}

func NewDeadLetterHandler(service Service, log logger.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *DeadLetterHandler) RegisterDeadLetterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		deadLetters := v1.Group("/dead-letters")
		{
			deadLetters.GET("", h.ListDeadLetters)
			deadLetters.GET("/:id", h.GetDeadLetter)
			deadLetters.POST("/:id/replay", h.ReplayDeadLetter)
			deadLetters.POST("/:id/discard", h.DiscardDeadLetter)
		}
	}
}

// ListDeadLetters godoc
// @Summary      List dead-letter entries
// @Description  Get quarantined messages, optionally filtered by status
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        status  query     string  false  "Filter by status (pending, replayed, discarded)"
// @Param        limit   query     int     false  "Maximum number of entries to return (1-1000)" default(100)
// @Param        offset  query     int     false  "Number of entries to skip" default(0)
// @Success      200     {array}   models.DeadLetterEntry
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /dead-letters [get]
func (h *DeadLetterHandler) ListDeadLetters(c *gin.Context) {
	status := c.Query("status")
	limit := parseLimit(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}

	entries, err := h.Service.ListDeadLetters(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetDeadLetter godoc
// @Summary      Get a dead-letter entry by ID
// @Description  Get one quarantined message with its full attempt history
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Entry ID (source_id:message_id)"
// @Success      200  {object}   models.DeadLetterEntry
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /dead-letters/{id} [get]
func (h *DeadLetterHandler) GetDeadLetter(c *gin.Context) {
	id := c.Param("id")
	entry, err := h.Service.GetDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ReplayDeadLetter godoc
// @Summary      Replay a dead-letter entry
// @Description  Re-enqueue a quarantined message for processing and mark the entry replayed
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Entry ID (source_id:message_id)"
// @Success      200  {object}   models.DeadLetterEntry
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /dead-letters/{id}/replay [post]
func (h *DeadLetterHandler) ReplayDeadLetter(c *gin.Context) {
	id := c.Param("id")
	entry, err := h.Service.ReplayDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DiscardDeadLetter godoc
// @Summary      Discard a dead-letter entry
// @Description  Mark a quarantined message discarded without reprocessing it
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Entry ID (source_id:message_id)"
// @Success      200  {object}   models.DeadLetterEntry
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /dead-letters/{id}/discard [post]
func (h *DeadLetterHandler) DiscardDeadLetter(c *gin.Context) {
	id := c.Param("id")
	entry, err := h.Service.DiscardDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}
