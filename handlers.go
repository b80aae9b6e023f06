package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/models/reports"
	"github.com/mmgarment/stitchbooks_backend/utils"
)

// sessionContext resolves the session user (SessionMiddleware put the
// username in context) and stamps business/user identity into the
// request context for the models layer.
func sessionContext(c *gin.Context) (context.Context, error) {
	ctx := c.Request.Context()
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil, errors.New("unauthorized")
	}
	user, err := models.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errors.New("unauthorized")
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("account is deactivated")
	}
	ctx = utils.SetBusinessIdInContext(ctx, user.BusinessId)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
	return ctx, nil
}

func adminContext(c *gin.Context) (context.Context, error) {
	ctx, err := sessionContext(c)
	if err != nil {
		return nil, err
	}
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
		return nil, errors.New("unauthorized")
	}
	return ctx, nil
}

func pathId(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}

func abortBadBinding(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

// --- auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		if _, err := models.Logout(ctx); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		user, err := models.ChangePassword(ctx, req.OldPassword, req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

// --- users (admin) ---

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := adminContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewUser
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		user, err := models.CreateUser(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := adminContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		users, err := models.GetAllUsers(ctx)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, u := range users {
			u.PrepareGive()
		}
		c.JSON(http.StatusOK, users)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleActiveUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := adminContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		user, err := models.ToggleActiveUser(ctx, id, *req.IsActive)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

// --- business ---

func getBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		business, err := models.GetBusiness(ctx)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func updateBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := adminContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewBusiness
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		business, err := models.UpdateBusiness(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

// --- inventory items ---

func createFabricHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewFabric
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		item, err := models.CreateFabric(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func updateFabricHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.NewFabric
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		item, err := models.UpdateFabric(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func createOutfitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewOutfit
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		item, err := models.CreateOutfit(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func updateOutfitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.NewOutfit
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		item, err := models.UpdateOutfit(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func listItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var itemType *models.ItemType
		if v := strings.TrimSpace(c.Query("type")); v != "" {
			t := models.ItemType(v)
			if !t.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item type"})
				return
			}
			itemType = &t
		}
		var name *string
		if v := strings.TrimSpace(c.Query("name")); v != "" {
			name = &v
		}
		items, err := models.ListInventoryItems(ctx, itemType, name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := models.GetInventoryItem(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

type deleteConfirmRequest struct {
	Password string `json:"password" binding:"required"`
}

func deleteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req deleteConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
			return
		}
		if err := models.VerifyActingUserPassword(ctx, req.Password); err != nil {
			abortUnauthorized(c, err)
			return
		}
		item, err := models.DeleteInventoryItem(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func adjustStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.NewAdjustment
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		entry, err := models.AdjustStock(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func stockHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entries, err := models.ListStockHistory(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func deleteStockHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req deleteConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
			return
		}
		if err := models.VerifyActingUserPassword(ctx, req.Password); err != nil {
			abortUnauthorized(c, err)
			return
		}
		entry, err := models.DeleteStockHistoryEntry(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// --- customers ---

func createCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewCustomer
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		customer, err := models.CreateCustomer(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func updateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.NewCustomer
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		customer, err := models.UpdateCustomer(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func listCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var name *string
		if v := strings.TrimSpace(c.Query("name")); v != "" {
			name = &v
		}
		customers, err := models.ListCustomers(ctx, name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, customers)
	}
}

func getCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := models.GetCustomer(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

// --- orders ---

func createTailoringOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewTailoringOrder
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		order, err := models.CreateTailoringOrder(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func createStockOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewStockOrder
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		order, err := models.CreateStockOrder(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func createLegacyOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewLegacyOrder
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		order, err := models.CreateLegacyOrder(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var status *models.OrderStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			s := models.OrderStatus(v)
			status = &s
		}
		var orderType *models.OrderType
		if v := strings.TrimSpace(c.Query("type")); v != "" {
			t := models.OrderType(v)
			orderType = &t
		}
		var customerName *string
		if v := strings.TrimSpace(c.Query("customer")); v != "" {
			customerName = &v
		}
		orders, err := models.ListOrders(ctx, status, orderType, customerName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := models.GetOrder(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type receiveOrderRequest struct {
	ReceivedBreakdown map[models.SizeLabel]int `json:"received_breakdown"`
}

func receiveOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req receiveOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		order, err := models.ReceiveOrder(ctx, id, req.ReceivedBreakdown)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func shipOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.ShipOrderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		order, err := models.ShipOrder(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func cancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := models.CancelOrder(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func deleteOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req deleteConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
			return
		}
		order, err := models.DeleteOrder(ctx, id, req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// --- production batches ---

func createProductionBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var req models.NewProductionBatch
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		batch, err := models.CreateProductionBatch(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func receiveProductionBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req models.ReceiveProductionBatchInput
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadBinding(c, err)
			return
		}
		batch, err := models.ReceiveProductionBatch(ctx, id, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func listProductionBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var status *models.BatchStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			s := models.BatchStatus(v)
			status = &s
		}
		batches, err := models.ListProductionBatches(ctx, status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batches)
	}
}

func getProductionBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		id, err := pathId(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		batch, err := models.GetProductionBatch(ctx, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

// --- reports ---

func overviewReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		resp, err := reports.GetBusinessOverview(ctx, c.Query("filter"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func customerInsightsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		topN := 0
		if v := strings.TrimSpace(c.Query("top")); v != "" {
			topN, _ = strconv.Atoi(v)
		}
		resp, err := reports.GetCustomerInsights(ctx, c.Query("filter"), topN)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func monthlyTrendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		points, err := reports.GetMonthlyTrend(ctx)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, points)
	}
}

func exportCustomerReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="customer_report.xlsx"`)
		if err := reports.ExportCustomerReportExcel(ctx, c.Query("filter"), c.Writer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
}

// --- order import ---

func importOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()
		ctx, span := tracer.Start(ctx, "orders.import")
		defer span.End()
		result, err := models.ImportOrdersFromXlsx(ctx, fileHeader.Filename, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// --- change history ---

func listChangeHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		var referenceId *int
		if v := strings.TrimSpace(c.Query("reference_id")); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				referenceId = &id
			}
		}
		var referenceType *string
		if v := strings.TrimSpace(c.Query("reference_type")); v != "" {
			referenceType = &v
		}
		var userId *int
		if v := strings.TrimSpace(c.Query("user_id")); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				userId = &id
			}
		}
		histories, err := models.GetChangeHistories(ctx, referenceId, referenceType, userId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

// --- ops (admin only) ---

func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := adminContext(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		replayed, err := models.ReplayDeadStockEvents(ctx, businessId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"business_id": businessId,
			"replayed":    replayed,
		})
	}
}
