package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	// ErrUnavailable covers transport failures: the server could not be
	// reached at all, as opposed to rejecting the request
	ErrUnavailable = errors.New("server unavailable")
)

// Client is an HTTP client for the fieldsync server.
type Client struct {
	BaseURL  string
	Token    string
	DeviceID string
	HTTP     *http.Client
}

// New creates a new sync client.
func New(baseURL, token, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Token:    token,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// RecordID tolerates servers that return numeric IDs as JSON numbers
// or strings.
type RecordID string

func (r *RecordID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = RecordID(n.String())
	return nil
}

// --- Property types ---

// PropertyRecord represents a property as the server stores it.
type PropertyRecord struct {
	ID         RecordID `json:"id"`
	ClientRef  string   `json:"clientRef,omitempty"`
	Address    string   `json:"address"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	OwnerName  string   `json:"ownerName,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
}

// --- Inspection types ---

// InspectionRecord represents an inspection as the server stores it.
type InspectionRecord struct {
	ID         RecordID        `json:"id"`
	ClientRef  string          `json:"clientRef,omitempty"`
	PropertyID string          `json:"propertyId"`
	Kind       string          `json:"kind"`
	StepData   json.RawMessage `json:"stepData,omitempty"`
	Completed  bool            `json:"completed"`
	UserID     string          `json:"userId,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
	CreatedAt  string          `json:"createdAt,omitempty"`
}

// --- Evidence types ---

// EvidenceUploadResponse is the server's acknowledgement of a binary
// upload.
type EvidenceUploadResponse struct {
	ID  RecordID `json:"id"`
	URL string   `json:"url"`
}

// EvidenceUpload carries the metadata sent alongside the binary.
type EvidenceUpload struct {
	InspectionID string
	Step         int
	Type         string
	Metadata     string
	Latitude     *float64
	Longitude    *float64
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doNoAuth(ctx, "GET", "/healthz", nil, nil)
}

// --- Property methods ---

// CreateProperty creates a property on the server. clientRef carries
// the local ID so a retried create after a lost response resolves to
// the already-created record instead of a duplicate.
func (c *Client) CreateProperty(ctx context.Context, p *PropertyRecord) (*PropertyRecord, error) {
	var resp PropertyRecord
	if err := c.do(ctx, "POST", "/api/properties", p, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProperty fetches the server copy of a property.
func (c *Client) GetProperty(ctx context.Context, serverID string) (*PropertyRecord, error) {
	var resp PropertyRecord
	if err := c.do(ctx, "GET", "/api/properties/"+url.PathEscape(serverID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProperty overwrites the server copy of a property.
func (c *Client) UpdateProperty(ctx context.Context, serverID string, p *PropertyRecord) (*PropertyRecord, error) {
	var resp PropertyRecord
	if err := c.do(ctx, "PATCH", "/api/properties/"+url.PathEscape(serverID), p, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteProperty removes a property on the server.
func (c *Client) DeleteProperty(ctx context.Context, serverID string) error {
	return c.do(ctx, "DELETE", "/api/properties/"+url.PathEscape(serverID), nil, nil)
}

// ListProperties fetches all properties for a user.
func (c *Client) ListProperties(ctx context.Context, userID string) ([]PropertyRecord, error) {
	params := url.Values{}
	if userID != "" {
		params.Set("userId", userID)
	}
	path := "/api/properties"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var resp []PropertyRecord
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Inspection methods ---

// CreateInspection creates an inspection on the server.
func (c *Client) CreateInspection(ctx context.Context, i *InspectionRecord) (*InspectionRecord, error) {
	var resp InspectionRecord
	if err := c.do(ctx, "POST", "/api/inspections", i, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInspection fetches the server copy of an inspection.
func (c *Client) GetInspection(ctx context.Context, serverID string) (*InspectionRecord, error) {
	var resp InspectionRecord
	if err := c.do(ctx, "GET", "/api/inspections/"+url.PathEscape(serverID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateInspection overwrites the server copy of an inspection.
func (c *Client) UpdateInspection(ctx context.Context, serverID string, i *InspectionRecord) (*InspectionRecord, error) {
	var resp InspectionRecord
	if err := c.do(ctx, "PATCH", "/api/inspections/"+url.PathEscape(serverID), i, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteInspection removes an inspection on the server.
func (c *Client) DeleteInspection(ctx context.Context, serverID string) error {
	return c.do(ctx, "DELETE", "/api/inspections/"+url.PathEscape(serverID), nil, nil)
}

// --- Evidence methods ---

// UploadEvidence sends the binary at localPath plus its metadata as a
// multipart request.
func (c *Client) UploadEvidence(ctx context.Context, localPath string, meta EvidenceUpload) (*EvidenceUploadResponse, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open evidence file: %w", err)
	}
	defer f.Close()
	return c.UploadEvidenceReader(ctx, f, filepath.Base(localPath), meta)
}

// UploadEvidenceReader uploads evidence from an arbitrary reader.
func (c *Client) UploadEvidenceReader(ctx context.Context, r io.Reader, filename string, meta EvidenceUpload) (*EvidenceUploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy evidence data: %w", err)
	}

	fields := map[string]string{
		"inspectionId": meta.InspectionID,
		"step":         strconv.Itoa(meta.Step),
		"type":         meta.Type,
	}
	if meta.Metadata != "" {
		fields["metadata"] = meta.Metadata
	}
	if meta.Latitude != nil {
		fields["latitude"] = strconv.FormatFloat(*meta.Latitude, 'f', -1, 64)
	}
	if meta.Longitude != nil {
		fields["longitude"] = strconv.FormatFloat(*meta.Longitude, 'f', -1, 64)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/evidence/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var out EvidenceUploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func statusError(status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return &apiErr
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}

// do executes an authenticated HTTP request.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, false)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
