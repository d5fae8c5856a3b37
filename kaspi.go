package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	orderPageSize = 100
	fetchAttempts = 2
	orderStatus   = "ACCEPTED_BY_MERCHANT"
	orderState    = "KASPI_DELIVERY"
)

// retryPause is a var so tests can shrink it.
var retryPause = 5 * time.Second

// kaspiHTTPClient bounds each page request; the fetch loop itself runs
// until the API signals the last page.
var kaspiHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// apiError is a non-2xx response from the Kaspi API. It is never retried,
// unlike connection-level failures.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("Kaspi API returned %d: %s", e.Status, e.Body)
}

type ordersResponse struct {
	Data []orderResource `json:"data"`
}

type orderResource struct {
	Attributes orderAttributes `json:"attributes"`
}

type orderAttributes struct {
	Code          string        `json:"code"`
	PickupPointID string        `json:"pickupPointId"`
	KaspiDelivery kaspiDelivery `json:"kaspiDelivery"`
}

type kaspiDelivery struct {
	CourierTransmissionPlanningDate *int64 `json:"courierTransmissionPlanningDate"`
	CourierTransmissionDate         *int64 `json:"courierTransmissionDate"`
}

// fetchOrders retrieves every order created inside the window, paging until
// the API returns a short or empty page. Pages are fetched sequentially;
// records keep page-arrival order. Stable pagination under concurrent order
// writes is assumed — a repeated record would be appended twice.
// Any failure aborts the whole fetch: no partial results.
func fetchOrders(cfg Config, w ReportWindow) ([]Order, error) {
	var all []Order
	page := 0

	for {
		res, err := fetchOrderPage(cfg, w, page)
		if err != nil {
			return nil, err
		}
		if len(res.Data) == 0 {
			log.Printf("kaspi fetch page=%d empty, done", page)
			break
		}
		log.Printf("kaspi fetch page=%d orders=%d", page, len(res.Data))

		for _, resource := range res.Data {
			all = append(all, resource.toOrder())
		}

		if len(res.Data) < orderPageSize {
			break
		}
		page++
	}

	return all, nil
}

func fetchOrderPage(cfg Config, w ReportWindow, page int) (*ordersResponse, error) {
	params := url.Values{}
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(orderPageSize))
	params.Set("filter[orders][creationDate][$ge]", strconv.FormatInt(w.Start.UnixMilli(), 10))
	params.Set("filter[orders][creationDate][$le]", strconv.FormatInt(w.Now.UnixMilli(), 10))
	params.Set("filter[orders][status]", orderStatus)
	params.Set("filter[orders][state]", orderState)
	apiURL := cfg.KaspiAPIURL + "?" + params.Encode()

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequest("GET", apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("X-Auth-Token", cfg.KaspiAuthToken)
		req.Header.Set("Accept", "application/vnd.api+json;charset=UTF-8")

		resp, err := kaspiHTTPClient.Do(req)
		var body []byte
		if err == nil {
			// A connection can also drop mid-body; read it here so that
			// failure takes the same retry path as a failed dial.
			body, err = io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				err = fmt.Errorf("reading response: %w", err)
			}
		}
		if err != nil {
			log.Printf("kaspi fetch page=%d attempt=%d connection error: %v", page, attempt, err)
			if attempt >= fetchAttempts {
				return nil, fmt.Errorf("fetching page %d: %w", page, err)
			}
			time.Sleep(retryPause)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &apiError{Status: resp.StatusCode, Body: string(body)}
		}

		var out ordersResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("parsing page %d response: %w", page, err)
		}
		return &out, nil
	}
}

func (r orderResource) toOrder() Order {
	o := Order{
		Code:    r.Attributes.Code,
		StoreID: r.Attributes.PickupPointID,
	}
	if o.Code == "" {
		o.Code = "unknown"
	}
	if o.StoreID == "" {
		o.StoreID = "unknown store"
	}
	if ms := r.Attributes.KaspiDelivery.CourierTransmissionPlanningDate; ms != nil {
		o.PlannedAt = time.UnixMilli(*ms).In(businessZone)
	}
	if ms := r.Attributes.KaspiDelivery.CourierTransmissionDate; ms != nil {
		o.HandedAt = time.UnixMilli(*ms).In(businessZone)
	}
	return o
}
