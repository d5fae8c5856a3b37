package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testFetchConfig(apiURL string) Config {
	return Config{KaspiAPIURL: apiURL, KaspiAuthToken: "test-token"}
}

func ordersPage(count int) []byte {
	res := ordersResponse{}
	for i := 0; i < count; i++ {
		res.Data = append(res.Data, orderResource{
			Attributes: orderAttributes{
				Code:          fmt.Sprintf("ORD-%d", i),
				PickupPointID: "14576033_9005",
			},
		})
	}
	data, _ := json.Marshal(res)
	return data
}

func TestFetchOrdersPagination(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		if got := r.Header.Get("X-Auth-Token"); got != "test-token" {
			t.Errorf("X-Auth-Token = %q, want %q", got, "test-token")
		}
		q := r.URL.Query()
		if got := q.Get("filter[orders][status]"); got != "ACCEPTED_BY_MERCHANT" {
			t.Errorf("status filter = %q", got)
		}
		if got := q.Get("filter[orders][state]"); got != "KASPI_DELIVERY" {
			t.Errorf("state filter = %q", got)
		}
		if got := q.Get("page[size]"); got != "100" {
			t.Errorf("page size = %q", got)
		}

		switch q.Get("page[number]") {
		case "0":
			w.Write(ordersPage(orderPageSize))
		default:
			w.Write(ordersPage(0))
		}
	}))
	defer srv.Close()

	orders, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err != nil {
		t.Fatalf("fetchOrders() error: %v", err)
	}
	if len(orders) != orderPageSize {
		t.Errorf("orders = %d, want %d", len(orders), orderPageSize)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2 (full page then empty page)", got)
	}
}

func TestFetchOrdersShortPageStops(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write(ordersPage(3))
	}))
	defer srv.Close()

	orders, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err != nil {
		t.Fatalf("fetchOrders() error: %v", err)
	}
	if len(orders) != 3 {
		t.Errorf("orders = %d, want 3", len(orders))
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (short page terminates)", got)
	}
}

func TestFetchOrdersAPIErrorNoRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err == nil {
		t.Fatal("fetchOrders() should fail on non-2xx response")
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *apiError", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", apiErr.Status, http.StatusBadGateway)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (API errors are not retried)", got)
	}
}

func TestFetchOrdersRetriesConnectionError(t *testing.T) {
	oldPause := retryPause
	retryPause = time.Millisecond
	defer func() { retryPause = oldPause }()

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			// Drop the connection mid-request to force a client-side error.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.Write(ordersPage(2))
	}))
	defer srv.Close()

	orders, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err != nil {
		t.Fatalf("fetchOrders() error after retry: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders = %d, want 2", len(orders))
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2 (failed attempt + retry)", got)
	}
}

func TestFetchOrdersRetriesTruncatedBody(t *testing.T) {
	oldPause := retryPause
	retryPause = time.Millisecond
	defer func() { retryPause = oldPause }()

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			// Promise a full body but deliver a fragment; the client sees
			// the connection drop mid-read.
			w.Header().Set("Content-Length", "1000")
			w.Write([]byte(`{"data":[`))
			return
		}
		w.Write(ordersPage(2))
	}))
	defer srv.Close()

	orders, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err != nil {
		t.Fatalf("fetchOrders() error after body-read retry: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders = %d, want 2", len(orders))
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2 (truncated body + retry)", got)
	}
}

func TestFetchOrdersRetryExhausted(t *testing.T) {
	oldPause := retryPause
	retryPause = time.Millisecond
	defer func() { retryPause = oldPause }()

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	orders, err := fetchOrders(testFetchConfig(srv.URL), testWindow())
	if err == nil {
		t.Fatal("fetchOrders() should fail after exhausting retries")
	}
	if orders != nil {
		t.Errorf("orders = %v, want nil (no partial results)", orders)
	}
	if got := atomic.LoadInt32(&requests); got != fetchAttempts {
		t.Errorf("requests = %d, want %d", got, fetchAttempts)
	}
}

func TestOrderResourceToOrder(t *testing.T) {
	planned := time.Date(2025, 6, 15, 14, 30, 0, 0, businessZone).UnixMilli()
	handed := time.Date(2025, 6, 15, 16, 0, 0, 0, businessZone).UnixMilli()

	t.Run("full record", func(t *testing.T) {
		r := orderResource{Attributes: orderAttributes{
			Code:          "ORD-1",
			PickupPointID: "14576033_9005",
			KaspiDelivery: kaspiDelivery{
				CourierTransmissionPlanningDate: &planned,
				CourierTransmissionDate:         &handed,
			},
		}}
		o := r.toOrder()
		if o.Code != "ORD-1" || o.StoreID != "14576033_9005" {
			t.Errorf("identity = %q/%q", o.Code, o.StoreID)
		}
		if o.PlannedAt.UnixMilli() != planned {
			t.Errorf("PlannedAt = %v", o.PlannedAt)
		}
		if o.HandedAt.UnixMilli() != handed {
			t.Errorf("HandedAt = %v", o.HandedAt)
		}
	})

	t.Run("absent fields use sentinels", func(t *testing.T) {
		o := orderResource{}.toOrder()
		if o.Code != "unknown" {
			t.Errorf("Code = %q, want sentinel", o.Code)
		}
		if o.StoreID != "unknown store" {
			t.Errorf("StoreID = %q, want sentinel", o.StoreID)
		}
		if !o.PlannedAt.IsZero() || !o.HandedAt.IsZero() {
			t.Error("absent timestamps should be zero")
		}
	})
}
