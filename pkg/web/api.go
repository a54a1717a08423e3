package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coffeeshop/pkg/order"
	"coffeeshop/pkg/otel"
)

// menuHandler lists the products that can be ordered.
// @Summary List menu
// @Tags menu
// @Produce json
// @Success 200 {array} web.ProductView
// @Router /api/menu [get]
func (h *Handler) menuHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "menuHandler")
	defer span.End()

	writeJSON(w, http.StatusOK, productViews(h.svc.Menu()))
}

// listOrdersHandler lists orders.
// @Summary List orders
// @Tags orders
// @Produce json
// @Success 200 {array} web.OrderView
// @Failure 500 {object} web.ErrorResponse
// @Router /api/orders [get]
func (h *Handler) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(orders))
}

// placeOrderHandler creates a new order.
// @Summary Place order
// @Description Body maps product names to quantities. Products left out or set to 0 are not ordered.
// @Tags orders
// @Accept json
// @Produce json
// @Param order body map[string]string true "Quantities by product name"
// @Success 201 {object} web.OrderView
// @Failure 400 {object} web.ErrorResponse
// @Failure 500 {object} web.ErrorResponse
// @Router /api/orders [post]
func (h *Handler) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "placeOrderHandler")
	defer span.End()

	body, err := decodeQuantities(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	o, err := h.svc.PlaceOrder(ctx, body)
	if err != nil {
		h.writeError(w, r, "place order", err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+strconv.FormatInt(o.ID, 10))
	writeJSON(w, http.StatusCreated, orderView(o))
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} web.OrderView
// @Failure 404 {object} web.ErrorResponse
// @Router /api/orders/{id} [get]
func (h *Handler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getOrderHandler")
	defer span.End()

	id, ok := orderID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	o, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

// reviseOrderHandler changes line quantities of an order.
// @Summary Revise order
// @Description Body maps line ids to quantities. Lines left out keep their quantity.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param quantities body map[string]string true "Quantities by line id"
// @Success 200 {object} web.OrderView
// @Failure 400 {object} web.ErrorResponse
// @Failure 404 {object} web.ErrorResponse
// @Router /api/orders/{id} [put]
func (h *Handler) reviseOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "reviseOrderHandler")
	defer span.End()

	id, ok := orderID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	body, err := decodeQuantities(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	raw := make(map[int64]string, len(body))
	for key, q := range body {
		lineID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			h.writeError(w, r, "revise order", &order.ValidationError{Field: key, Message: "invalid line id " + strconv.Quote(key)})
			return
		}
		raw[lineID] = q
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	o, err := h.svc.ReviseOrder(ctx, id, raw)
	if err != nil {
		h.writeError(w, r, "revise order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

// removeOrderHandler removes an order.
// @Summary Delete order
// @Tags orders
// @Param id path int true "Order ID"
// @Success 204
// @Failure 404 {object} web.ErrorResponse
// @Router /api/orders/{id} [delete]
func (h *Handler) removeOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeOrderHandler")
	defer span.End()

	id, ok := orderID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	if err := h.svc.RemoveOrder(ctx, id); err != nil {
		h.writeError(w, r, "remove order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthHandler reports the status of the service and its dependencies.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	status := http.StatusOK
	out := map[string]string{"status": "ok"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn(ctx, "health check failed", "check", name, "error", err)
			out[name] = err.Error()
			out["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	writeJSON(w, status, out)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	h.logFailure(r.Context(), op, status, err)
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeQuantities reads a JSON object whose values are quantities. Numbers
// are accepted as well as strings.
func decodeQuantities(r *http.Request) (map[string]string, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(body))
	for key, v := range body {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[key] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, err
		}
		out[key] = n.String()
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
