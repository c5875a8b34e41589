package myskoda

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/myskoda/pkg/httpclient"
	"github.com/samvad-hq/myskoda/pkg/models"
)

const targetVIN = "TMBJM0CKV1N12345"

type getCall struct {
	url     string
	headers map[string]string
}

type mockHTTPClient struct {
	mu     sync.Mutex
	calls  []getCall
	status int
	body   string
	err    error
}

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

func (m *mockHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, getCall{url: url, headers: headers})
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return mockResponse{body: []byte(m.body), statusCode: status}, nil
}

type mockAuthorization struct {
	token string
	err   error
	calls int
}

func (a *mockAuthorization) AccessToken(context.Context) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.token, nil
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(raw)
}

func newTestAPI(t *testing.T, client HTTPClient) *RestAPI {
	t.Helper()
	api, err := NewRestAPI(client, &mockAuthorization{token: "token-123"})
	require.NoError(t, err)
	return api
}

func TestGetDrivingRange(t *testing.T) {
	wantURL := "https://mysmob.api.connect.skoda-auto.cz/api/v2/vehicle-status/" + targetVIN + "/driving-range"

	testCases := map[string]struct {
		fixture        string
		carType        models.EngineType
		primaryEngine  models.EngineType
		primaryRange   int
		secondary      bool
		secondaryType  models.EngineType
		secondaryRange int
	}{
		"hybrid": {
			fixture:        "superb/driving-range-car-type-hybrid.json",
			carType:        models.EngineTypeHybrid,
			primaryEngine:  models.EngineTypeGasoline,
			primaryRange:   670,
			secondary:      true,
			secondaryType:  models.EngineTypeElectric,
			secondaryRange: 7,
		},
		"electric": {
			fixture:       "enyaq/driving-range-iv80-car-type-electric.json",
			carType:       models.EngineTypeElectric,
			primaryEngine: models.EngineTypeElectric,
			primaryRange:  139,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)

			client := &mockHTTPClient{body: readFixture(t, tc.fixture)}
			api := newTestAPI(t, client)

			status, err := api.GetDrivingRange(context.Background(), targetVIN)
			require.NoError(err)

			assert.Equal(tc.carType, status.CarType)
			assert.Equal(tc.primaryEngine, status.PrimaryEngineRange.EngineType)
			assert.Equal(tc.primaryRange, status.PrimaryEngineRange.RemainingRangeInKm)
			if tc.secondary {
				require.NotNil(status.SecondaryEngineRange)
				assert.Equal(tc.secondaryType, status.SecondaryEngineRange.EngineType)
				assert.Equal(tc.secondaryRange, status.SecondaryEngineRange.RemainingRangeInKm)
			} else {
				assert.Nil(status.SecondaryEngineRange)
			}
			assert.Equal(status.CarType == models.EngineTypeHybrid, status.SecondaryEngineRange != nil)

			require.Len(client.calls, 1)
			assert.Equal(wantURL, client.calls[0].url)
			assert.Equal("Bearer token-123", client.calls[0].headers["authorization"])
		})
	}
}

func TestGetDrivingRangeOptionalFields(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := &mockHTTPClient{body: readFixture(t, "superb/driving-range-car-type-hybrid.json")}
	status, err := newTestAPI(t, client).GetDrivingRange(context.Background(), targetVIN)
	require.NoError(err)

	require.NotNil(status.TotalRangeInKm)
	assert.Equal(677, *status.TotalRangeInKm)
	require.NotNil(status.PrimaryEngineRange.CurrentFuelLevelInPercent)
	assert.Equal(80, *status.PrimaryEngineRange.CurrentFuelLevelInPercent)
	require.NotNil(status.SecondaryEngineRange.CurrentSoCInPercent)
	assert.Equal(14, *status.SecondaryEngineRange.CurrentSoCInPercent)
	require.NotNil(status.CarCapturedTimestamp)
	assert.Equal(time.Date(2024, time.September, 24, 7, 59, 14, 551000000, time.UTC), status.CarCapturedTimestamp.UTC())
	assert.Nil(status.AdBlueRangeInKm)
}

func TestGetDrivingRangeIsRepeatable(t *testing.T) {
	client := &mockHTTPClient{body: readFixture(t, "enyaq/driving-range-iv80-car-type-electric.json")}
	api := newTestAPI(t, client)

	first, err := api.GetDrivingRange(context.Background(), targetVIN)
	require.NoError(t, err)
	second, err := api.GetDrivingRange(context.Background(), targetVIN)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, client.calls, 2)
}

func TestGetDrivingRangeUsesVINVerbatim(t *testing.T) {
	client := &mockHTTPClient{body: readFixture(t, "enyaq/driving-range-iv80-car-type-electric.json")}
	api := newTestAPI(t, client)

	_, err := api.GetDrivingRange(context.Background(), "tmb 123")
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "https://mysmob.api.connect.skoda-auto.cz/api/v2/vehicle-status/tmb 123/driving-range", client.calls[0].url)
}

func TestGetDrivingRangeResponseErrors(t *testing.T) {
	testCases := map[string]struct {
		body    string
		wantErr error
	}{
		"malformed json": {
			body:    `{"carType": "electric",`,
			wantErr: ErrParse,
		},
		"empty body": {
			body:    "",
			wantErr: ErrParse,
		},
		"missing primary engine range": {
			body:    `{"carType": "electric"}`,
			wantErr: ErrSchema,
		},
		"missing car type": {
			body:    `{"primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": 10}}`,
			wantErr: ErrSchema,
		},
		"missing primary range value": {
			body:    `{"carType": "electric", "primaryEngineRange": {"engineType": "electric"}}`,
			wantErr: ErrSchema,
		},
		"missing primary engine type": {
			body:    `{"carType": "electric", "primaryEngineRange": {"remainingRangeInKm": 10}}`,
			wantErr: ErrSchema,
		},
		"range of wrong type": {
			body:    `{"carType": "electric", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": "10"}}`,
			wantErr: ErrSchema,
		},
		"fractional range": {
			body:    `{"carType": "electric", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": 10.5}}`,
			wantErr: ErrSchema,
		},
		"negative range": {
			body:    `{"carType": "electric", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": -1}}`,
			wantErr: ErrSchema,
		},
		"unknown car type": {
			body:    `{"carType": "hydrogen", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": 10}}`,
			wantErr: models.ErrUnknownEngineType,
		},
		"unknown secondary engine type": {
			body:    `{"carType": "hybrid", "primaryEngineRange": {"engineType": "gasoline", "remainingRangeInKm": 10}, "secondaryEngineRange": {"engineType": "steam", "remainingRangeInKm": 1}}`,
			wantErr: ErrSchema,
		},
		"hybrid without secondary": {
			body:    `{"carType": "hybrid", "primaryEngineRange": {"engineType": "gasoline", "remainingRangeInKm": 10}}`,
			wantErr: ErrSchema,
		},
		"electric with secondary": {
			body:    `{"carType": "electric", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": 10}, "secondaryEngineRange": {"engineType": "gasoline", "remainingRangeInKm": 1}}`,
			wantErr: ErrSchema,
		},
		"json array": {
			body:    `[]`,
			wantErr: ErrSchema,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			client := &mockHTTPClient{body: tc.body}
			status, err := newTestAPI(t, client).GetDrivingRange(context.Background(), targetVIN)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, status)
			assert.Len(t, client.calls, 1)
		})
	}
}

func TestGetDrivingRangeUnknownCarTypeIsSchemaError(t *testing.T) {
	client := &mockHTTPClient{body: `{"carType": "hydrogen", "primaryEngineRange": {"engineType": "electric", "remainingRangeInKm": 10}}`}
	_, err := newTestAPI(t, client).GetDrivingRange(context.Background(), targetVIN)
	assert.ErrorIs(t, err, ErrSchema)
	assert.ErrorIs(t, err, models.ErrUnknownEngineType)
}

func TestGetDrivingRangeAuthFailureSkipsRequest(t *testing.T) {
	client := &mockHTTPClient{}
	auth := &mockAuthorization{err: errors.New("refresh token revoked")}
	api, err := NewRestAPI(client, auth)
	require.NoError(t, err)

	_, err = api.GetDrivingRange(context.Background(), targetVIN)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, auth.calls)
	assert.Empty(t, client.calls)
}

func TestGetDrivingRangeTransportFailures(t *testing.T) {
	testCases := map[string]struct {
		client  *mockHTTPClient
		wantErr error
	}{
		"connection refused": {
			client:  &mockHTTPClient{err: errors.New("dial tcp: connection refused")},
			wantErr: ErrNetwork,
		},
		"deadline exceeded": {
			client:  &mockHTTPClient{err: context.DeadlineExceeded},
			wantErr: ErrNetwork,
		},
		"canceled": {
			client:  &mockHTTPClient{err: context.Canceled},
			wantErr: ErrNetwork,
		},
		"unauthorized": {
			client:  &mockHTTPClient{status: http.StatusUnauthorized, body: `{"error":"expired"}`},
			wantErr: ErrAuth,
		},
		"forbidden": {
			client:  &mockHTTPClient{status: http.StatusForbidden},
			wantErr: ErrAuth,
		},
		"server error": {
			client:  &mockHTTPClient{status: http.StatusBadGateway, body: "bad gateway"},
			wantErr: ErrNetwork,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestAPI(t, tc.client).GetDrivingRange(context.Background(), targetVIN)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Len(t, tc.client.calls, 1)
		})
	}
}

func TestGetDrivingRangeConcurrentCalls(t *testing.T) {
	client := &mockHTTPClient{body: readFixture(t, "superb/driving-range-car-type-hybrid.json")}
	api, err := NewRestAPI(client, &concurrentAuthorization{token: "t"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := api.GetDrivingRange(context.Background(), targetVIN)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, client.calls, workers)
}

type concurrentAuthorization struct {
	token string
}

func (a concurrentAuthorization) AccessToken(context.Context) (string, error) { return a.token, nil }

func TestGetDrivingRangeAgainstServer(t *testing.T) {
	fixture := readFixture(t, "enyaq/driving-range-iv80-car-type-electric.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/vehicle-status/"+targetVIN+"/driving-range", r.URL.Path)
		assert.Equal(t, "Bearer server-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	api, err := NewRestAPI(
		httpclient.NewRestyClient(httpclient.Options{Timeout: 2 * time.Second}),
		&mockAuthorization{token: "server-token"},
		WithBaseURL(srv.URL+"/"),
	)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, api.BaseURL())

	status, err := api.GetDrivingRange(context.Background(), targetVIN)
	require.NoError(t, err)
	assert.Equal(t, models.EngineTypeElectric, status.CarType)
	assert.Equal(t, 139, status.PrimaryEngineRange.RemainingRangeInKm)
}

func TestGetDrivingRangeContextErrorsStayInspectable(t *testing.T) {
	client := &mockHTTPClient{err: context.DeadlineExceeded}

	_, err := newTestAPI(t, client).GetDrivingRange(context.Background(), targetVIN)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetDrivingRangeTimesOutAgainstSlowServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	api, err := NewRestAPI(
		httpclient.NewRestyClient(httpclient.Options{Timeout: 5 * time.Second}),
		&mockAuthorization{token: "server-token"},
		WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	status, err := api.GetDrivingRange(ctx, targetVIN)
	assert.Nil(t, status)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestNewRestAPIRequiresAuthorization(t *testing.T) {
	_, err := NewRestAPI(&mockHTTPClient{}, nil)
	assert.Error(t, err)
}
