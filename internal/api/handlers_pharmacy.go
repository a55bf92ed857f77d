package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medbridge/hospital-api/internal/pharmacy"
)

func addCartItemHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		var req AddCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.ProductID == 0 {
			writeError(w, http.StatusBadRequest, "invalid_product", "product_id is required")
			return
		}

		itemID, err := svc.AddCartItem(r.Context(), claims.UserID, req.ProductID, req.Quantity)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]int64{"item_id": itemID})
	}
}

func updateCartItemHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		itemID, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_item_id", "id must be an integer")
			return
		}

		var req UpdateCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.UpdateCartItem(r.Context(), claims.UserID, itemID, req.Quantity); err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "cart item updated"})
	}
}

func removeCartItemHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		itemID, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_item_id", "id must be an integer")
			return
		}

		if err := svc.RemoveCartItem(r.Context(), claims.UserID, itemID); err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "cart item removed"})
	}
}

func getCartHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		lines, total, err := svc.Cart(r.Context(), claims.UserID)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		resp := CartResponse{Items: make([]CartLineResponse, 0, len(lines)), Total: total}
		for _, l := range lines {
			resp.Items = append(resp.Items, CartLineResponse{
				ID:          l.ID,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				LineTotal:   l.LineTotal,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createOrderHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		orderID, err := svc.CreateOrder(r.Context(), claims.UserID, req.CartItemIDs, pharmacy.OrderInput{
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateOrderResponse{
			OrderID: orderID,
			Message: "order placed",
		})
	}
}

func myOrdersHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		orders, err := svc.MyOrders(r.Context(), claims.UserID)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toOrderResponse(o, nil))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func adminListOrdersHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListOrders(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toOrderResponse(o.Order, o.Items))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func adminGetOrderHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "id must be an integer")
			return
		}

		detail, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(detail.Order, detail.Items))
	}
}

func updateOrderStatusHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "id must be an integer")
			return
		}

		var req UpdateOrderStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.UpdateOrderStatus(r.Context(), orderID, pharmacy.OrderStatus(req.NewStatus)); err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "order status updated"})
	}
}

func toOrderResponse(o pharmacy.Order, items []pharmacy.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		OrderDate:       o.OrderDate,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return resp
}

func handlePharmacyError(w http.ResponseWriter, err error) {
	var stockErr *pharmacy.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())
	case errors.Is(err, pharmacy.ErrCartItemNotFound):
		writeError(w, http.StatusNotFound, "cart_item_not_found", err.Error())
	case errors.Is(err, pharmacy.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, pharmacy.ErrOrderAlreadyClosed):
		writeError(w, http.StatusConflict, "order_already_completed", err.Error())
	case errors.Is(err, pharmacy.ErrEmptyOrder),
		errors.Is(err, pharmacy.ErrCartItemsUnusable),
		errors.Is(err, pharmacy.ErrInvalidQuantity),
		errors.Is(err, pharmacy.ErrInvalidOrderStatus):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInternalError(w, err)
	}
}
