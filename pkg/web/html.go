package web

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"coffeeshop/pkg/otel"
)

const fieldPrefix = "quantity_"

type page struct {
	Title    string
	Message  string
	Orders   []OrderView
	Products []ProductView
	Order    OrderView
}

func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		h.log.Error(ctx, "render", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	h.logFailure(ctx, op, status, err)
	h.render(ctx, w, status, "error", page{Title: http.StatusText(status), Message: msg})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: msgNotFound})
		return
	}
	h.render(r.Context(), w, http.StatusNotFound, "error", page{Title: "Not Found", Message: msgNotFound})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	msg := http.StatusText(http.StatusMethodNotAllowed)
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: msg})
		return
	}
	h.render(r.Context(), w, http.StatusMethodNotAllowed, "error", page{Title: msg, Message: msg})
}

func (h *Handler) listOrdersPage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersPage")
	defer span.End()
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx)
	if err != nil {
		h.renderError(ctx, w, "list orders", err)
		return
	}
	h.render(ctx, w, http.StatusOK, "index", page{Title: "Orders", Orders: orderViews(orders)})
}

func (h *Handler) menuPage(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "menuPage")
	defer span.End()

	h.render(r.Context(), w, http.StatusOK, "menu", page{Title: "Menu", Products: productViews(h.svc.Menu())})
}

func (h *Handler) placeOrderForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "placeOrderForm")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		h.render(ctx, w, http.StatusBadRequest, "error", page{Title: "Bad Request", Message: "invalid form"})
		return
	}
	raw := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		raw[key] = r.PostForm.Get(key)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	if _, err := h.svc.PlaceOrder(ctx, raw); err != nil {
		h.renderError(ctx, w, "place order", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) editOrderPage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "editOrderPage")
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
		h.renderError(ctx, w, "get order", err)
		return
	}
	h.render(ctx, w, http.StatusOK, "edit", page{Title: "Edit order #" + strconv.FormatInt(id, 10), Order: orderView(o)})
}

func (h *Handler) reviseOrderForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "reviseOrderForm")
	defer span.End()

	id, ok := orderID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(ctx, w, http.StatusBadRequest, "error", page{Title: "Bad Request", Message: "invalid form"})
		return
	}
	raw := make(map[int64]string)
	for key := range r.PostForm {
		lineID, ok := strings.CutPrefix(key, fieldPrefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(lineID, 10, 64)
		if err != nil {
			continue
		}
		raw[n] = r.PostForm.Get(key)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	if _, err := h.svc.ReviseOrder(ctx, id, raw); err != nil {
		h.renderError(ctx, w, "revise order", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) removeOrderForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeOrderForm")
	defer span.End()

	id, ok := orderID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	if err := h.svc.RemoveOrder(ctx, id); err != nil {
		h.renderError(ctx, w, "remove order", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
