package web

import (
	"fmt"
	"net/http"
	"strconv"

	"procurement-flow/internal/app"
	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
)

// poLineRequest is one line of the order form.
type poLineRequest struct {
	MaterialID   *int             `json:"material_id"`
	Description  string           `json:"description"`
	Manufacturer string           `json:"manufacturer"`
	UnitPurchase string           `json:"unit_purchase"`
	QtyOrdered   decimal.Decimal  `json:"qty_ordered"`
	PriceUnit    decimal.Decimal  `json:"price_unit"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	DesiredDate  string           `json:"desired_date"`
	ExpectedDate string           `json:"expected_date"`
	Note         string           `json:"note"`
	Options      map[int]*int     `json:"options"`
}

type placeOrderRequest struct {
	SupplierID       int             `json:"supplier_id"`
	ExpectedDate     string          `json:"expected_date"`
	DeliveryLocation string          `json:"delivery_location"`
	Items            []poLineRequest `json:"items"`
}

// apiListPurchaseOrders handles GET /api/purchase-orders?status=&supplier_id=&limit=.
func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	var f core.PurchaseOrderFilter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		st, err := core.ParseStatus(s)
		if err != nil {
			writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		f.Status = &st
	}
	if s := q.Get("supplier_id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, "supplier_id must be an integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		f.SupplierID = &id
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}
	res, err := h.svc.ListPurchaseOrders(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, detail)
}

// apiPlaceOrder handles POST /api/purchase-orders. Without supplier_id the
// lines are split by each material's preferred supplier.
func (h *Handler) apiPlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expected, ok := dateField(w, r, "expected_date", req.ExpectedDate)
	if !ok {
		return
	}
	in := core.PlaceOrderInput{
		SupplierID:       req.SupplierID,
		ExpectedDate:     expected,
		DeliveryLocation: req.DeliveryLocation,
	}
	for i, l := range req.Items {
		desired, err := parseDate(l.DesiredDate)
		if err != nil {
			writeError(w, r, fmt.Sprintf("items.%d.desired_date: expected YYYY-MM-DD", i), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		lineExpected, err := parseDate(l.ExpectedDate)
		if err != nil {
			writeError(w, r, fmt.Sprintf("items.%d.expected_date: expected YYYY-MM-DD", i), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		in.Items = append(in.Items, core.PurchaseOrderItemInput{
			MaterialID:   l.MaterialID,
			Description:  l.Description,
			Manufacturer: l.Manufacturer,
			UnitPurchase: l.UnitPurchase,
			QtyOrdered:   l.QtyOrdered,
			PriceUnit:    l.PriceUnit,
			TaxRate:      l.TaxRate,
			DesiredDate:  desired,
			ExpectedDate: lineExpected,
			Note:         l.Note,
			Options:      l.Options,
		})
	}
	res, err := h.svc.PlaceOrder(r.Context(), app.PlaceOrderRequest{Order: in, ActorID: actorID(r)})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// apiScanOrder handles POST /api/ordering/scan.
func (h *Handler) apiScanOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token   string          `json:"token"`
		Qty     decimal.Decimal `json:"qty"`
		Note    string          `json:"note"`
		Options map[int]*int    `json:"options"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.ScanOrder(r.Context(), app.ScanOrderRequest{
		Scan:    core.ScanOrderInput{Token: req.Token, Qty: req.Qty, Note: req.Note, Options: req.Options},
		ActorID: actorID(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// apiApproved is the approval engine's completion callback.
func (h *Handler) apiApproved(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.IssuePurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CancelPurchaseOrder(r.Context(), app.CancelOrderRequest{
		PurchaseOrderID: id,
		ActorID:         actorID(r),
		Comment:         req.Comment,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiRecomputeTotals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.RecomputeTotals(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiReceive handles POST /api/purchase-orders/{id}/receivings.
func (h *Handler) apiReceive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ReceivedAt      string `json:"received_at"`
		ReferenceNumber string `json:"reference_number"`
		Notes           string `json:"notes"`
		Lines           []struct {
			PurchaseOrderItemID int             `json:"purchase_order_item_id"`
			Qty                 decimal.Decimal `json:"qty"`
			LotNo               string          `json:"lot_no"`
			ExpiryDate          string          `json:"expiry_date"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	receivedAt, ok := dateField(w, r, "received_at", req.ReceivedAt)
	if !ok {
		return
	}
	in := core.ReceiveInput{
		PurchaseOrderID: id,
		ReceivedAt:      receivedAt,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       actorID(r),
	}
	for i, l := range req.Lines {
		expiry, err := parseDate(l.ExpiryDate)
		if err != nil {
			writeError(w, r, fmt.Sprintf("lines.%d.expiry_date: expected YYYY-MM-DD", i), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		in.Lines = append(in.Lines, core.ReceiveLineInput{
			PurchaseOrderItemID: l.PurchaseOrderItemID,
			Qty:                 l.Qty,
			LotNo:               l.LotNo,
			ExpiryDate:          expiry,
		})
	}
	res, err := h.svc.ReceivePurchaseOrder(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// apiCancelItem handles POST /api/purchase-order-items/{id}/cancel.
func (h *Handler) apiCancelItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CancelItem(r.Context(), app.CancelItemRequest{ItemID: id, Reason: req.Reason})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiUpdateExpectedDate handles PUT /api/purchase-order-items/{id}/expected-date.
// An empty date clears it.
func (h *Handler) apiUpdateExpectedDate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ExpectedDate string `json:"expected_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	date, ok := dateField(w, r, "expected_date", req.ExpectedDate)
	if !ok {
		return
	}
	item, err := h.svc.UpdateItemExpectedDate(r.Context(), app.UpdateExpectedDateRequest{ItemID: id, Date: date})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sum)
}
