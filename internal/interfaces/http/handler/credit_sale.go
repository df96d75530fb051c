package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	creditapp "github.com/retailpos/backend/internal/application/credit"
	"github.com/retailpos/backend/internal/interfaces/http/middleware"
	"github.com/retailpos/backend/internal/interfaces/http/router"
)

// CreditSaleHandler handles credit sale (fiado) API endpoints
type CreditSaleHandler struct {
	BaseHandler
	sales     *creditapp.CreditSaleService
	payments  *creditapp.PaymentRegistrar
	reminders *creditapp.ReminderService
	reports   *creditapp.SettlementReportService
}

// NewCreditSaleHandler creates a new CreditSaleHandler
func NewCreditSaleHandler(
	sales *creditapp.CreditSaleService,
	payments *creditapp.PaymentRegistrar,
	reminders *creditapp.ReminderService,
	reports *creditapp.SettlementReportService,
) *CreditSaleHandler {
	return &CreditSaleHandler{
		sales:     sales,
		payments:  payments,
		reminders: reminders,
		reports:   reports,
	}
}

// Routes returns the credit sale route group
func (h *CreditSaleHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("credit-sales", "/credit-sales")
	g.POST("", h.Create).
		GET("", h.ListActive).
		GET("/settlement/:status", h.ListBySettlement).
		GET("/due", h.ListDue).
		GET("/summary", h.Summary).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Remove).
		POST("/:id/postpone", h.Postpone).
		POST("/:id/archive", h.Archive).
		POST("/:id/unarchive", h.Unarchive).
		POST("/:id/restore", h.Restore)
	g.Group("credit-sale-payments", "/:id/payments").
		Use(middleware.IdempotencyKey()).
		POST("", h.RegisterPayment).
		GET("", h.ListPayments)
	return g
}

// RegisterRoutes implements router.RouteRegistrar
func (h *CreditSaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	h.Routes().RegisterRoutes(rg)
}

// Create godoc
// @Summary      Create a credit sale
// @Description  Records a sale on credit, from line items or as a quick entry with a total
// @Tags         credit-sales
// @Accept       json
// @Produce      json
// @Param        request body creditapp.CreateCreditSaleRequest true "Credit sale"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /credit-sales [post]
func (h *CreditSaleHandler) Create(c *gin.Context) {
	var req creditapp.CreateCreditSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// ListActive godoc
// @Summary      List active credit sales
// @Description  Non-archived, non-deleted sales, paged and searchable by customer
// @Tags         credit-sales
// @Produce      json
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Page size" default(20)
// @Param        search      query string false "Customer name or phone"
// @Param        charge_from query string false "Charge date lower bound (YYYY-MM-DD)"
// @Param        charge_to   query string false "Charge date upper bound (YYYY-MM-DD)"
// @Success      200 {object} dto.Response
// @Router       /credit-sales [get]
func (h *CreditSaleHandler) ListActive(c *gin.Context) {
	var q creditapp.ListCreditSalesFilter
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.sales.ListActive(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListBySettlement godoc
// @Summary      List credit sales by settlement status
// @Tags         credit-sales
// @Produce      json
// @Param        status path string true "em_aberto|open or paga|paid"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /credit-sales/settlement/{status} [get]
func (h *CreditSaleHandler) ListBySettlement(c *gin.Context) {
	var q creditapp.ListCreditSalesFilter
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.sales.ListBySettlement(c.Request.Context(), c.Param("status"), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListDue godoc
// @Summary      List sales due for collection
// @Description  Open sales whose charge date, or reminder window, has been reached
// @Tags         credit-sales
// @Produce      json
// @Param        as_of query string false "Reference date (YYYY-MM-DD), defaults to now"
// @Success      200 {object} dto.Response
// @Router       /credit-sales/due [get]
func (h *CreditSaleHandler) ListDue(c *gin.Context) {
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		d, err := creditapp.ParseDate(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		asOf = d
	}

	due, err := h.reminders.ListDue(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, due)
}

// Summary godoc
// @Summary      Settlement summary
// @Description  Totals sold, received and outstanding for sales dated in the range
// @Tags         credit-sales
// @Produce      json
// @Param        from query string false "Sale date lower bound (YYYY-MM-DD)"
// @Param        to   query string false "Sale date upper bound, inclusive (YYYY-MM-DD)"
// @Success      200 {object} dto.Response
// @Router       /credit-sales/summary [get]
func (h *CreditSaleHandler) Summary(c *gin.Context) {
	var q creditapp.SummaryFilter
	if !h.BindQuery(c, &q) {
		return
	}

	summary, err := h.reports.Summary(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetByID godoc
// @Summary      Get a credit sale
// @Tags         credit-sales
// @Produce      json
// @Param        id path string true "Credit sale ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /credit-sales/{id} [get]
func (h *CreditSaleHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Update godoc
// @Summary      Update a credit sale
// @Description  Replaces the editable fields; the remaining balance is recomputed
// @Tags         credit-sales
// @Accept       json
// @Produce      json
// @Param        id      path string true "Credit sale ID" format(uuid)
// @Param        request body creditapp.UpdateCreditSaleRequest true "Credit sale"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /credit-sales/{id} [put]
func (h *CreditSaleHandler) Update(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req creditapp.UpdateCreditSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Remove godoc
// @Summary      Remove a credit sale
// @Description  Soft-deletes the sale; payments are kept and the sale can be restored
// @Tags         credit-sales
// @Param        id path string true "Credit sale ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response
// @Router       /credit-sales/{id} [delete]
func (h *CreditSaleHandler) Remove(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.sales.Remove(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterPayment godoc
// @Summary      Register a payment
// @Description  Applies a payment to the sale. A failed cash ledger entry does not
// @Description  fail the payment and is reported in warnings.
// @Tags         credit-sales
// @Accept       json
// @Produce      json
// @Param        id              path   string true  "Credit sale ID" format(uuid)
// @Param        Idempotency-Key header string false "Client key making retries safe"
// @Param        request         body   creditapp.RegisterPaymentRequest true "Payment"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /credit-sales/{id}/payments [post]
func (h *CreditSaleHandler) RegisterPayment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req creditapp.RegisterPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.SaleID = id
	req.IdempotencyKey = c.GetHeader(middleware.IdempotencyKeyHeader)

	result, err := h.payments.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.LedgerWarning {
		h.CreatedWithWarnings(c, result, "Payment saved, but the cash ledger entry failed: "+result.LedgerError)
		return
	}
	h.Created(c, result)
}

// ListPayments godoc
// @Summary      List payments of a credit sale
// @Tags         credit-sales
// @Produce      json
// @Param        id path string true "Credit sale ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /credit-sales/{id}/payments [get]
func (h *CreditSaleHandler) ListPayments(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.sales.GetPaymentsForSale(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Postpone godoc
// @Summary      Postpone the charge date
// @Tags         credit-sales
// @Accept       json
// @Produce      json
// @Param        id      path string true "Credit sale ID" format(uuid)
// @Param        request body creditapp.PostponeRequest true "New charge date"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /credit-sales/{id}/postpone [post]
func (h *CreditSaleHandler) Postpone(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req creditapp.PostponeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.Postpone(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Archive hides a sale from the active list without deleting it
func (h *CreditSaleHandler) Archive(c *gin.Context) {
	h.lifecycle(c, h.sales.Archive)
}

// Unarchive returns an archived sale to the active list
func (h *CreditSaleHandler) Unarchive(c *gin.Context) {
	h.lifecycle(c, h.sales.Unarchive)
}

// Restore undoes Remove
func (h *CreditSaleHandler) Restore(c *gin.Context) {
	h.lifecycle(c, h.sales.Restore)
}

func (h *CreditSaleHandler) lifecycle(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*creditapp.CreditSaleResponse, error)) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}
