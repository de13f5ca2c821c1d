package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		path     string
		query    url.Values
		want     string
	}{
		{"joins", "https://ems.example.com/api", "/v2/ems-systems", nil, "https://ems.example.com/api/v2/ems-systems"},
		{"trailing slash", "https://ems.example.com/api/", "v2/ems-systems", nil, "https://ems.example.com/api/v2/ems-systems"},
		{"absolute", "https://ems.example.com/api", "https://other.example.com/x", nil, "https://other.example.com/x"},
		{"query", "https://ems.example.com/api", "/v2/flights", url.Values{"limit": {"10"}}, "https://ems.example.com/api/v2/flights?limit=10"},
		{"merged query", "https://ems.example.com/api", "/v2/flights?a=1", url.Values{"b": {"2"}}, "https://ems.example.com/api/v2/flights?a=1&b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveURL(tt.endpoint, tt.path, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestBuild_Bodies(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantBody string
		wantType string
	}{
		{"none", nil, "", ""},
		{"string", "raw", "raw", ""},
		{"bytes", []byte("raw"), "raw", ""},
		{"form", url.Values{"grant_type": {"password"}}, "grant_type=password", "application/x-www-form-urlencoded"},
		{"json", map[string]int{"limit": 5}, `{"limit":5}`, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Request{Method: "post", Path: "/x", Body: tt.body}
			req, err := r.build(context.Background(), "https://ems.example.com/api")
			require.NoError(t, err)

			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, tt.wantType, req.Header.Get("Content-Type"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
			if req.Body != nil {
				data, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(data))
			} else {
				assert.Empty(t, tt.wantBody)
			}
		})
	}
}

func TestRequestBuild_DefaultsToGet(t *testing.T) {
	r := &Request{Path: "/x", Header: http.Header{"Accept": {"text/csv"}}}
	req, err := r.build(context.Background(), "https://ems.example.com/api")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "text/csv", req.Header.Get("Accept"))
}

func TestRequestBuild_UnencodableBody(t *testing.T) {
	r := &Request{Method: http.MethodPost, Path: "/x", Body: make(chan int)}
	_, err := r.build(context.Background(), "https://ems.example.com/api")
	assert.Error(t, err)
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "detail", failureMessage([]byte(`{"message":"msg","messageDetail":"detail"}`), "400 Bad Request"))
	assert.Equal(t, "msg", failureMessage([]byte(`{"message":"msg"}`), "400 Bad Request"))
	assert.Equal(t, "400 Bad Request", failureMessage([]byte(`not json`), "400 Bad Request"))
	assert.Equal(t, "502 Bad Gateway", failureMessage(nil, "502 Bad Gateway"))
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		StatusCode: 404,
		Status:     "404 Not Found",
		Message:    "EMS system 7 does not exist",
		Method:     http.MethodGet,
		URL:        "https://ems.example.com/api/v2/ems-systems/7",
	}
	assert.Equal(t, "GET https://ems.example.com/api/v2/ems-systems/7: 404 Not Found: EMS system 7 does not exist", err.Error())
}

func TestResponse_Decode(t *testing.T) {
	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, (&Response{Body: []byte(`{"id":7}`)}).Decode(&out))
	assert.Equal(t, 7, out.ID)

	out.ID = 3
	require.NoError(t, (&Response{Body: []byte("  ")}).Decode(&out))
	assert.Equal(t, 3, out.ID)

	assert.Error(t, (&Response{Body: []byte("{")}).Decode(&out))
}
