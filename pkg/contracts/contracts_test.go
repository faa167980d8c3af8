package contracts

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/api"
	"github.com/wms-platform/reallocation-service/pkg/cloudevents"
)

func newHTTPValidator(t *testing.T) *HTTPValidator {
	t.Helper()
	v, err := NewHTTPValidator(api.OpenAPI)
	require.NoError(t, err)
	return v
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestNewHTTPValidator_RejectsBrokenDocument(t *testing.T) {
	_, err := NewHTTPValidator([]byte("openapi: 3.0.3\npaths: {}\n"))
	assert.Error(t, err)
}

func TestHTTPValidator_ValidateRequest(t *testing.T) {
	v := newHTTPValidator(t)

	tests := []struct {
		name    string
		req     *http.Request
		wantErr bool
	}{
		{
			name: "create with numeric quantity",
			req: jsonRequest(http.MethodPost, "/api/v1/reallocations",
				`{"materialId":"M-1","from":"work-order:WO-A","to":"inventory-pool","quantity":12.5,"requestedBy":"planner"}`),
		},
		{
			name: "create with string quantity",
			req: jsonRequest(http.MethodPost, "/api/v1/reallocations",
				`{"materialId":"M-1","from":"WO-A","to":"WO-B","quantity":"3","requestedBy":"planner"}`),
		},
		{
			name: "create without requester",
			req: jsonRequest(http.MethodPost, "/api/v1/reallocations",
				`{"materialId":"M-1","from":"WO-A","to":"WO-B","quantity":"3"}`),
			wantErr: true,
		},
		{
			name:    "approval without decision",
			req:     jsonRequest(http.MethodPost, "/api/v1/reallocations/req-1/approval", `{"approver":"sam"}`),
			wantErr: true,
		},
		{
			name:    "history with unknown status",
			req:     httptest.NewRequest(http.MethodGet, "/api/v1/reallocations?status=lost", nil),
			wantErr: true,
		},
		{
			name:    "unknown route",
			req:     httptest.NewRequest(http.MethodGet, "/api/v2/reallocations", nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHTTPValidator_ValidateResponse(t *testing.T) {
	v := newHTTPValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reallocations/req-1", nil)

	valid := `{"id":"req-1","materialId":"M-1","from":"work-order:WO-A","to":"inventory-pool",
		"quantity":"5","status":"pending","requestedBy":"planner","requestedAt":"2026-10-16T08:00:00Z",
		"auditTrail":[{"id":"a-1","action":"requested","performedBy":"planner","performedAt":"2026-10-16T08:00:00Z"}],
		"updatedAt":"2026-10-16T08:00:00Z"}`
	assert.NoError(t, v.ValidateResponse(req, jsonResponse(http.StatusOK, valid)))

	numericQuantity := strings.Replace(valid, `"quantity":"5"`, `"quantity":5`, 1)
	assert.Error(t, v.ValidateResponse(req, jsonResponse(http.StatusOK, numericQuantity)))

	notFound := `{"code":"NOT_FOUND","message":"reallocation request not found","timestamp":"2026-10-16T08:00:00Z","path":"/api/v1/reallocations/req-1"}`
	assert.NoError(t, v.ValidateResponse(req, jsonResponse(http.StatusNotFound, notFound)))
	assert.Error(t, v.ValidateResponse(req, jsonResponse(http.StatusNotFound, `{"error":"nope"}`)))
}

func TestHTTPValidator_OperationID(t *testing.T) {
	v := newHTTPValidator(t)

	id, err := v.OperationID(httptest.NewRequest(http.MethodPost, "/api/v1/reallocations/req-1/approval", nil))
	require.NoError(t, err)
	assert.Equal(t, "approveReallocation", id)
	assert.NotNil(t, v.Document().Paths.Find("/api/v1/reallocations"))
}

func newEventValidator(t *testing.T) *EventValidator {
	t.Helper()
	v, err := NewEventValidator(api.EventSchemas)
	require.NoError(t, err)
	return v
}

func TestEventValidator_EventTypes(t *testing.T) {
	v := newEventValidator(t)

	assert.Equal(t, []string{
		cloudevents.ReallocationCompleted,
		cloudevents.ReallocationRejected,
		cloudevents.ReallocationRequested,
		cloudevents.ReallocationRolledBack,
	}, v.EventTypes())
}

func TestEventValidator_ValidateEvent(t *testing.T) {
	v := newEventValidator(t)
	at := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	completed := &cloudevents.WMSCloudEvent{
		Type: cloudevents.ReallocationCompleted,
		Data: map[string]any{
			"requestId": "req-1", "materialId": "M-1",
			"from": "work-order:WO-A", "to": "inventory-pool",
			"quantity": "7.125", "approvedBy": "sam", "completedAt": at,
		},
	}
	assert.NoError(t, v.ValidateEvent(completed))

	badQuantity := &cloudevents.WMSCloudEvent{
		Type: cloudevents.ReallocationCompleted,
		Data: map[string]any{
			"requestId": "req-1", "materialId": "M-1",
			"from": "work-order:WO-A", "to": "inventory-pool",
			"quantity": "lots", "approvedBy": "sam", "completedAt": at,
		},
	}
	assert.Error(t, v.ValidateEvent(badQuantity))

	missingCause := &cloudevents.WMSCloudEvent{
		Type: cloudevents.ReallocationRolledBack,
		Data: map[string]any{"requestId": "req-1", "materialId": "M-1", "rolledBackAt": at},
	}
	assert.Error(t, v.ValidateEvent(missingCause))

	assert.Error(t, v.ValidateEvent(&cloudevents.WMSCloudEvent{Type: "wms.reallocation.unknown", Data: map[string]any{}}))
	assert.Error(t, v.ValidateEvent(&cloudevents.WMSCloudEvent{Type: cloudevents.ReallocationRejected}))
}

func TestEventValidator_ValidateEventJSON(t *testing.T) {
	v := newEventValidator(t)

	payload := []byte(`{"specversion":"1.0","type":"wms.reallocation.rejected","id":"e-1",
		"data":{"requestId":"req-1","materialId":"M-1","rejectedBy":"sam","rejectedAt":"2026-10-16T08:00:00Z"}}`)
	assert.NoError(t, v.ValidateEventJSON(payload))

	assert.Error(t, v.ValidateEventJSON([]byte(`{"type":"wms.reallocation.rejected"}`)))
	assert.Error(t, v.ValidateEventJSON([]byte(`not json`)))
}
