package server_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/queue"
	"github.com/desk-next/deskcli/server"
	"github.com/desk-next/deskcli/sysinfo"
	"github.com/desk-next/deskcli/testutil"
)

const (
	testWidth  = 640
	testHeight = 480
)

func testQueueConfig() queue.Config {
	return queue.Config{
		Depth:           4,
		ActionTimeout:   500 * time.Millisecond,
		ActionDelay:     time.Millisecond,
		ScreenshotDelay: time.Millisecond,
	}
}

func setupTestServer(t *testing.T, cfg queue.Config) (*httptest.Server, *testutil.FakeDriver, *queue.Queue) {
	t.Helper()

	driver := testutil.NewFakeDriver(testWidth, testHeight)
	q, err := queue.New(driver, cfg)
	require.NoError(t, err)
	t.Cleanup(q.Close)

	info := sysinfo.Info{
		OSType:        "linux",
		OSVersion:     "test",
		DisplayWidth:  testWidth,
		DisplayHeight: testHeight,
	}

	ts := httptest.NewServer(server.New(q, info, false).Handler())
	t.Cleanup(ts.Close)
	return ts, driver, q
}

func postAction(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/action", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type errorEnvelope struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestBanner(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestSystemInfo(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp, err := http.Get(ts.URL + "/v1/system/info")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var info map[string]interface{}
	decodeJSON(t, resp, &info)
	assert.Equal(t, "linux", info["os_type"])
	assert.Equal(t, "test", info["os_version"])
	assert.Equal(t, float64(testWidth), info["display_width"])
	assert.Equal(t, float64(testHeight), info["display_height"])
}

func TestSystemInfo_MethodNotAllowed(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp, err := http.Post(ts.URL+"/v1/system/info", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAction_MouseMove(t *testing.T) {
	ts, driver, _ := setupTestServer(t, testQueueConfig())

	resp := postAction(t, ts, `{"action":{"type":"mouse_move","input":{"x":100,"y":200}}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.NotNil(t, body["data"])

	calls := driver.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "MoveTo", calls[0].Name)
	assert.Equal(t, 100, calls[0].X)
	assert.Equal(t, 200, calls[0].Y)
}

func TestAction_CursorPosition(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp := postAction(t, ts, `{"action":{"type":"mouse_move","input":{"x":42,"y":77}}}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postAction(t, ts, `{"action":{"type":"cursor_position"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, float64(42), body.Data["x"])
	assert.Equal(t, float64(77), body.Data["y"])
}

func TestAction_Screenshot(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp := postAction(t, ts, `{"action":{"type":"screenshot"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Image string `json:"image"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Data.Image)

	raw, err := base64.StdEncoding.DecodeString(body.Data.Image)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, testWidth, img.Bounds().Dx())
	assert.Equal(t, testHeight, img.Bounds().Dy())
}

func TestAction_ValidationErrors(t *testing.T) {
	ts, driver, _ := setupTestServer(t, testQueueConfig())

	tests := []struct {
		body string
		kind string
	}{
		{`not json at all`, "validation_error"},
		{`{"action":{"type":"fly_to_moon"}}`, "validation_error"},
		{`{"action":{"type":"mouse_move"}}`, "validation_error"},
		{`{"action":{"type":"mouse_move","input":{"x":-5,"y":0}}}`, "out_of_bounds"},
		{fmt.Sprintf(`{"action":{"type":"mouse_move","input":{"x":%d,"y":0}}}`, testWidth), "out_of_bounds"},
		{`{"action":{"type":"key_press","input":{"key":"ctrl+banana"}}}`, "invalid_key"},
		{`{"action":{"type":"type_text","input":{"text":"bad\u0007char"}}}`, "unsupported_character"},
	}

	for _, tt := range tests {
		resp := postAction(t, ts, tt.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", tt.body)

		var errResp errorEnvelope
		decodeJSON(t, resp, &errResp)
		assert.Equal(t, tt.kind, errResp.Error.Kind, "body %s", tt.body)
		assert.NotEmpty(t, errResp.Error.Message)
	}

	// none of the rejected requests may reach the display
	assert.Empty(t, driver.Calls())
}

func TestAction_ExecutionError(t *testing.T) {
	ts, driver, _ := setupTestServer(t, testQueueConfig())
	driver.SetFailure(assert.AnError)

	resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var errResp errorEnvelope
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "execution_error", errResp.Error.Kind)
}

func TestAction_Timeout(t *testing.T) {
	cfg := testQueueConfig()
	cfg.ActionTimeout = 50 * time.Millisecond
	ts, driver, _ := setupTestServer(t, cfg)
	driver.Latency = 300 * time.Millisecond

	resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)

	var errResp errorEnvelope
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "timeout", errResp.Error.Kind)
}

func TestAction_Busy(t *testing.T) {
	cfg := queue.Config{
		Depth:         1,
		ActionTimeout: 2 * time.Second,
		ActionDelay:   time.Millisecond,
	}
	ts, driver, _ := setupTestServer(t, cfg)
	driver.Latency = 300 * time.Millisecond

	// saturate the worker and the single admission slot
	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
			resp.Body.Close()
			done <- struct{}{}
		}()
	}
	require.Eventually(t, func() bool {
		return len(driver.Calls()) >= 1
	}, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	resp := postAction(t, ts, `{"action":{"type":"right_click"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var errResp errorEnvelope
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "busy", errResp.Error.Kind)

	<-done
	<-done
}

func TestAction_DegradedAndReconnect(t *testing.T) {
	ts, driver, q := setupTestServer(t, testQueueConfig())
	driver.SetFailure(display.ErrConnectionLost)

	resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Eventually(t, q.Degraded, time.Second, time.Millisecond)

	// while degraded, actions fail fast
	resp = postAction(t, ts, `{"action":{"type":"left_click"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var errResp errorEnvelope
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "unavailable", errResp.Error.Kind)

	// reconnect fails while the display is still down
	driver.PingErr = display.ErrConnectionLost
	resp, err := http.Post(ts.URL+"/v1/reconnect", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// and succeeds once it is back
	driver.PingErr = nil
	driver.SetFailure(nil)
	resp, err = http.Post(ts.URL+"/v1/reconnect", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postAction(t, ts, `{"action":{"type":"left_click"}}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecentEvents(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/v1/monitor/recent")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Events []queue.Event `json:"events"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Events)
	assert.Equal(t, "left_click", body.Events[0].Action)
	assert.Equal(t, "success", body.Events[0].Status)
}

func TestMetrics(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp := postAction(t, ts, `{"action":{"type":"left_click"}}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "deskd_actions_total")
	assert.Contains(t, buf.String(), "deskd_action_duration_seconds")
}

func TestCORSHeaders(t *testing.T) {
	driver := testutil.NewFakeDriver(testWidth, testHeight)
	q, err := queue.New(driver, testQueueConfig())
	require.NoError(t, err)
	t.Cleanup(q.Close)

	ts := httptest.NewServer(server.New(q, sysinfo.Info{}, true).Handler())
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/action", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestShutdownEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t, testQueueConfig())

	resp, err := http.Post(ts.URL+"/v1/shutdown", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
