package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/sahelcraft/marketplace/internal/checkout"
	"github.com/sahelcraft/marketplace/internal/idempotency"
	kafkax "github.com/sahelcraft/marketplace/internal/kafka"
	"github.com/sahelcraft/marketplace/internal/lifecycle"
	"github.com/sahelcraft/marketplace/internal/metrics"
	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/redisx"
	"github.com/sahelcraft/marketplace/internal/store"
)

// OrdersHandler is the thin caller surface over the order core. It trusts
// the ids in the request body; authentication is outside this service.
type OrdersHandler struct {
	Store    store.Store
	Engine   *checkout.Engine
	Manager  *lifecycle.Manager
	Producer *kafkax.Producer
	Redis    *redis.Client
	Metrics  *metrics.Core
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/pay", h.pay)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/confirm-delivery", h.confirmDelivery)
	r.Post("/orders/{id}/confirm-received", h.confirmReceived)
	r.Post("/orders/{id}/status", h.updateStatus)
	r.Get("/products", h.listProducts)
}

type checkoutReq struct {
	BuyerID         string            `json:"buyer_id"`
	Items           []orders.CartLine `json:"items"`
	DeliveryAddress string            `json:"delivery_address"`
	DeliveryPhone   string            `json:"delivery_phone"`
	BillingAddress  string            `json:"billing_address,omitempty"`
	PaymentMethod   string            `json:"payment_method"`
	Note            string            `json:"note,omitempty"`
}

type payReq struct {
	BuyerID       string `json:"buyer_id"`
	PaymentMethod string `json:"payment_method"`
	PhoneNumber   string `json:"phone_number"`
}

type cancelReq struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

type confirmReq struct {
	UserID string `json:"user_id"`
}

type updateStatusReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core errors to HTTP codes; detail slices ride along so
// the buyer sees every shortage, not just the first.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *orders.InsufficientStockError
	var nfErr *orders.ProductNotFoundError
	var transErr *orders.InvalidTransitionError
	var payErr *orders.PaymentFailedError

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     stockErr.Error(),
			"shortages": stockErr.Shortages,
		})
	case errors.As(err, &nfErr), errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &transErr),
		errors.Is(err, orders.ErrAlreadyPaid),
		errors.Is(err, orders.ErrEscrowReleased):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &payErr):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": payErr.Error()})
	case errors.Is(err, orders.ErrNotBuyer), errors.Is(err, orders.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrMissingAddress),
		errors.Is(err, orders.ErrMissingPhone),
		errors.Is(err, orders.ErrInvalidQty),
		errors.Is(err, orders.ErrInvalidPayMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.BuyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "buyer_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Replays with the same Idempotency-Key return the original order.
	idemKey := idempotency.Key(r)
	if idemKey != "" && h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemCheckout, idemKey)
		if orderID, err := h.Redis.Get(ctx, key).Result(); err == nil && orderID != "" {
			if o, err := h.Store.GetOrder(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, orderResponse(o, true))
				return
			}
		}
	}

	o, err := h.Engine.Checkout(ctx, checkout.Input{
		BuyerID:         req.BuyerID,
		Lines:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryPhone:   req.DeliveryPhone,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   orders.PaymentMethod(req.PaymentMethod),
		Note:            req.Note,
	})
	h.observe("checkout", err, started)
	if err != nil {
		writeError(w, err)
		return
	}

	if idemKey != "" && h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemCheckout, idemKey)
		_ = h.Redis.Set(ctx, key, o.ID, redisx.TTLIdempotency).Err()
	}
	h.cacheStatus(ctx, o)

	h.publish(r, orders.TopicOrderCreated, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		BuyerID:     o.BuyerID,
		Items:       itemSnapshots(o.Items),
		Subtotal:    o.Subtotal,
		Shipping:    o.Shipping,
		Tax:         o.Tax,
		Total:       o.Total,
	})

	writeJSON(w, http.StatusCreated, orderResponse(o, false))
}

func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	orderID := chi.URLParam(r, "id")
	var req payReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	// Outer timeout covers the provider call bound inside the manager.
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	o, err := h.Manager.ProcessPayment(ctx, orderID, req.BuyerID, orders.PaymentMethod(req.PaymentMethod), req.PhoneNumber)
	h.observe("pay", err, started)
	if err != nil {
		var payErr *orders.PaymentFailedError
		if errors.As(err, &payErr) {
			h.publish(r, orders.TopicPaymentFailed, orders.EventPaymentFailed, orderID, orders.PaymentFailedPayload{
				OrderID: orderID,
				Reason:  payErr.Reason,
			})
		}
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	h.publish(r, orders.TopicOrderPaid, orders.EventOrderPaid, o.ID, orders.OrderPaidPayload{
		OrderID:       o.ID,
		TransactionID: o.TransactionID,
		Method:        o.PaymentMethod,
		Amount:        o.Total,
		ArtisanIDs:    o.ArtisanIDs(),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"transaction_id": o.TransactionID,
		"order":          orderResponse(o, false),
	})
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	orderID := chi.URLParam(r, "id")
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.Cancel(ctx, orderID, req.UserID, req.Reason)
	h.observe("cancel", err, started)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	payload := orders.OrderCancelledPayload{
		OrderID:   o.ID,
		Reason:    req.Reason,
		Restocked: restockedItems(o.Items),
		Refunded:  o.Status == orders.StatusRefunded,
	}
	h.publish(r, orders.TopicOrderCancelled, orders.EventOrderCancelled, o.ID, payload)
	if payload.Refunded {
		h.publish(r, orders.TopicOrderRefunded, orders.EventOrderRefunded, o.ID, payload)
	}

	writeJSON(w, http.StatusOK, orderResponse(o, false))
}

func (h *OrdersHandler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	orderID := chi.URLParam(r, "id")
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.ConfirmDelivery(ctx, orderID, req.UserID)
	h.observe("confirm_delivery", err, started)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	h.publish(r, orders.TopicOrderDelivered, orders.EventOrderDelivered, o.ID, orders.OrderDeliveredPayload{
		OrderID:        o.ID,
		EscrowReleased: o.EscrowReleased,
	})

	writeJSON(w, http.StatusOK, orderResponse(o, false))
}

func (h *OrdersHandler) confirmReceived(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	orderID := chi.URLParam(r, "id")
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.ConfirmReceived(ctx, orderID, req.UserID)
	h.observe("confirm_received", err, started)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	h.publish(r, orders.TopicOrderReceived, orders.EventOrderReceived, o.ID, orders.OrderReceivedPayload{OrderID: o.ID})

	writeJSON(w, http.StatusOK, orderResponse(o, false))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	orderID := chi.URLParam(r, "id")
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Manager.UpdateStatus(ctx, orderID, req.UserID, orders.Role(req.Role), orders.Status(req.Status))
	h.observe("update_status", err, started)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, orderResponse(o, false))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Status reads are hot; serve the cached summary when present.
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, statusSummary(o))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := r.URL.Query().Get("buyer_id")
	if buyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "buyer_id required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ListOrdersByBuyer(ctx, buyerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*orderView, 0, len(list))
	for i := range list {
		out = append(out, orderResponse(&list[i], false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, productView{
			ID: p.ID, ArtisanID: p.ArtisanID, Name: p.Name, Price: p.Price, Stock: p.Stock,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) publish(r *http.Request, topic, eventType, orderID string, payload any) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(statusSummary(o))
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) observe(op string, err error, started time.Time) {
	if h.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.Metrics.Observe(op, outcome, float64(time.Since(started).Milliseconds()))
}
