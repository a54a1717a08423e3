package web

import (
	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
)

// ProductView is a menu entry as rendered to clients.
type ProductView struct {
	Name  string `json:"name" example:"Espresso"`
	Price string `json:"price" example:"2.00"`
}

// LineView is an order line as rendered to clients.
type LineView struct {
	ID          int64  `json:"id" example:"1"`
	ProductName string `json:"product_name" example:"Espresso"`
	UnitPrice   string `json:"unit_price" example:"2.00"`
	Quantity    int    `json:"quantity" example:"2"`
	Subtotal    string `json:"subtotal" example:"4.00"`
}

// OrderView is an order with its computed total.
type OrderView struct {
	ID    int64      `json:"id" example:"1"`
	Items []LineView `json:"items"`
	Total string     `json:"total" example:"4.00"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid quantity for Espresso"`
}

func productViews(products []catalog.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{Name: p.Name, Price: p.UnitPrice.StringFixed(2)})
	}
	return out
}

func orderView(o order.Order) OrderView {
	v := OrderView{ID: o.ID, Items: make([]LineView, 0, len(o.Items)), Total: o.Total().StringFixed(2)}
	for _, l := range o.Items {
		v.Items = append(v.Items, LineView{
			ID:          l.ID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().StringFixed(2),
		})
	}
	return v
}

func orderViews(orders []order.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView(o))
	}
	return out
}
