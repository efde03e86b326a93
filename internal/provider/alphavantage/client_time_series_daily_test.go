package alphavantage_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"stockchart/internal/provider/alphavantage"
)

var mockDailyResponse = map[string]any{
	"Meta Data": map[string]any{
		"1. Information": "Daily Prices (open, high, low, close) and Volumes",
		"2. Symbol":      "IBM",
	},
	"Time Series (Daily)": map[string]any{
		"2024-01-02": map[string]any{
			"1. open":   "10.0000",
			"2. high":   "12.0000",
			"3. low":    "9.0000",
			"4. close":  "11.0000",
			"5. volume": "1000",
		},
		"2024-01-03": map[string]any{
			"1. open":   "11.0000",
			"2. high":   "13.0000",
			"3. low":    "10.5000",
			"4. close":  "12.5000",
			"5. volume": "2000",
		},
	},
}

func TestGetTimeSeriesDaily(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/query", req.URL.Path)
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))
			require.Equal(t, "TIME_SERIES_DAILY", req.URL.Query().Get("function"))
			require.Equal(t, "ibm", req.URL.Query().Get("symbol"), "symbol is sent verbatim")

			return okResponse(t, mockDailyResponse), nil
		}).
		Times(1)

	// Arrange: setup a new API client
	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call GetTimeSeriesDaily
	res, err := client.GetTimeSeriesDaily(testContext(t), "ibm")
	require.NoError(t, err)
	require.NotNil(t, res)

	// Assert: both days are present with their raw fields
	require.Len(t, res.Series, 2)
	require.Contains(t, string(res.Series["2024-01-02"]), `"10.0000"`)
	require.Empty(t, res.Note)
}

func TestGetTimeSeriesDaily_MissingSeriesKey(t *testing.T) {
	t.Parallel()

	// Arrange: a throttled response has no series, only a note.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(okResponse(t, map[string]any{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}), nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")

	// Assert: not an error at this layer, the series is nil and the note kept
	require.NoError(t, err)
	require.Nil(t, res.Series)
	require.Contains(t, res.Note, "call frequency")
}

func TestGetTimeSeriesDaily_EmptySeries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(okResponse(t, map[string]any{"Time Series (Daily)": map[string]any{}}), nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.NoError(t, err)
	require.NotNil(t, res.Series, "a present but empty series must stay distinguishable from a missing one")
	require.Empty(t, res.Series)
}

func TestGetTimeSeriesDaily_DuplicateDateLastWins(t *testing.T) {
	t.Parallel()

	body := `{"Time Series (Daily)": {
		"2024-01-02": {"4. close": "1"},
		"2024-01-02": {"4. close": "2"}
	}}`

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	require.Contains(t, string(res.Series["2024-01-02"]), `"2"`)
}

func TestGetTimeSeriesDaily_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the request is never sent
	httpClient.EXPECT().
		Do(gomock.Any()).
		Times(0)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call GetTimeSeriesDaily with an invalid base URL
	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM", alphavantage.WithBaseURL(string([]rune{0x7f})))
	require.Error(t, err)
	require.Nil(t, res)
}

func TestGetTimeSeriesDaily_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}).
		Times(1)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.Error(t, err)
	require.Nil(t, res)
}

func TestGetTimeSeriesDaily_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("upstream down"))}, nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.Nil(t, res)

	var statusErr *alphavantage.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "upstream down", statusErr.Body)
}

func TestGetTimeSeriesDaily_ErrEmptyBody(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("  \n"))}, nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.ErrorIs(t, err, alphavantage.ErrEmptyResponse)
}

func TestGetTimeSeriesDaily_ErrDecodingBody(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("<html>busy</html>"))}, nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	res, err := client.GetTimeSeriesDaily(testContext(t), "IBM")
	require.Error(t, err)
	require.NotErrorIs(t, err, alphavantage.ErrEmptyResponse)
	require.Nil(t, res)
}
