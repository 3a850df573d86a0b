// Package httpstore talks to a json-server style REST collection of slots:
// GET /slots, GET /slots/{id} and PATCH /slots/{id}.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"parking-occupancy/internal/parking"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the collection rooted at baseURL. A nil httpClient
// gets a traced client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type patch struct {
	Occupied      bool    `json:"occupied"`
	VehicleNumber *string `json:"vehicleNumber"`
	EntryTime     *string `json:"entryTime"`
}

func (c *Client) ListSlots(ctx context.Context) ([]parking.Slot, error) {
	var slots []parking.Slot
	if err := c.do(ctx, http.MethodGet, "/slots", nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) GetSlot(ctx context.Context, slotID int) (parking.Slot, error) {
	var slot parking.Slot
	err := c.do(ctx, http.MethodGet, "/slots/"+strconv.Itoa(slotID), nil, &slot)
	return slot, err
}

// Occupy reads the slot before patching it. A plain json-server applies any
// patch, so the state check happens here; a collection that checks state
// itself answers 409 instead.
func (c *Client) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (parking.Slot, error) {
	current, err := c.GetSlot(ctx, slotID)
	if err != nil {
		return parking.Slot{}, err
	}
	if current.Occupied() {
		return parking.Slot{}, parking.ErrSlotAlreadyOccupied
	}

	entry := entryTime.UTC().Format(time.RFC3339Nano)
	body := patch{Occupied: true, VehicleNumber: &vehicleNumber, EntryTime: &entry}

	var slot parking.Slot
	if err := c.do(ctx, http.MethodPatch, "/slots/"+strconv.Itoa(slotID), body, &slot); err != nil {
		return parking.Slot{}, conflictAs(err, parking.ErrSlotAlreadyOccupied)
	}
	return slot, nil
}

func (c *Client) Release(ctx context.Context, slotID int) (parking.Slot, error) {
	current, err := c.GetSlot(ctx, slotID)
	if err != nil {
		return parking.Slot{}, err
	}
	if !current.Occupied() {
		return parking.Slot{}, parking.ErrSlotNotOccupied
	}

	var slot parking.Slot
	if err := c.do(ctx, http.MethodPatch, "/slots/"+strconv.Itoa(slotID), patch{}, &slot); err != nil {
		return parking.Slot{}, conflictAs(err, parking.ErrSlotNotOccupied)
	}
	return slot, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("slot collection returned %d: %s", e.code, e.body)
}

func conflictAs(err error, conflict error) error {
	if se, ok := err.(*statusError); ok && se.code == http.StatusConflict {
		return conflict
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return parking.ErrSlotNotFound
	case resp.StatusCode == http.StatusConflict:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %w", parking.ErrStoreUnavailable,
			&statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", parking.ErrStoreUnavailable, err)
	}
	return nil
}
