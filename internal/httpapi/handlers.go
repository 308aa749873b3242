package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/orders"
	"github.com/cupoftea4/pos-mysql/internal/receipt"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.svc.Auth.Register(r.Context(), in.Email, in.Password, in.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type categoryBody struct {
	Name string `json:"name"`
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Catalog.ListCategories(r.Context(), r.URL.Query().Get("search"), pageFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Catalog.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryBody
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Catalog.CreateCategory(r.Context(), identityFrom(r.Context()), in.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in categoryBody
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Catalog.UpdateCategory(r.Context(), id, in.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageID{Message: "Category updated successfully", ID: id})
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())
	page, err := h.svc.Catalog.ListItems(r.Context(), who, r.URL.Query().Get("search"), pageFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	it, err := h.svc.Catalog.GetItem(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	it, err := h.svc.Catalog.CreateItem(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in model.ItemInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	it, err := h.svc.Catalog.UpdateItem(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Catalog.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageID{Message: "Item deleted successfully", ID: id})
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Orders.ListOrders(r.Context(), r.URL.Query().Get("search"), pageFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateRequest
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.svc.Orders.CreateOrder(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Orders.RefundOrder(r.Context(), identityFrom(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageID{Message: "Order refunded successfully", ID: id})
}

func (h *handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.Orders.Receipt(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Receipts.Render(&buf, o); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.FileName(o.OrderID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) salesReport(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.svc.Reports.SalesReport(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (h *handler) salesDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details, err := h.svc.Reports.SalesDetails(r.Context(), q.Get("period"), q.Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
