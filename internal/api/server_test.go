package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/output"
	"github.com/bryanchriswhite/SnapshotFilter/internal/snapshot"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*snapshot.Filter, *httptest.Server) {
	t.Helper()
	filter := snapshot.NewFilter(nil, nil)
	srv := httptest.NewServer(NewServer(filter, nil).Handler())
	t.Cleanup(srv.Close)
	return filter, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, "GET", srv.URL+"/api/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestTrigger_ArmsAndDisarms(t *testing.T) {
	filter, srv := newTestServer(t)

	resp := do(t, "POST", srv.URL+"/api/trigger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, snapshot.StateArmed, filter.State())

	resp = do(t, "POST", srv.URL+"/api/trigger", `{"trigger": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, snapshot.StateIdle, filter.State())

	resp = do(t, "POST", srv.URL+"/api/trigger", `{"trigger":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, snapshot.StateIdle, filter.State())
}

func TestSnapshotSettings_GetAndPartialUpdate(t *testing.T) {
	filter, srv := newTestServer(t)

	resp := do(t, "GET", srv.URL+"/api/snapshot", "")
	var settings snapshot.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	assert.Equal(t, snapshot.Settings{FrameDelay: 0, FileType: snapshot.FileTypeBMP, Location: "image.bmp"}, settings)

	resp = do(t, "PUT", srv.URL+"/api/snapshot", `{"frame_delay": 3, "file_type": "jpg"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	assert.Equal(t, 3, settings.FrameDelay)
	assert.Equal(t, snapshot.FileTypeJPEG, settings.FileType)
	assert.Equal(t, "image.bmp", settings.Location)
	assert.Equal(t, 3, filter.Stats().DelayCounter)
}

func TestSnapshotSettings_InvalidUpdateChangesNothing(t *testing.T) {
	filter, srv := newTestServer(t)

	for _, body := range []string{
		`{"frame_delay": -1}`,
		`{"frame_delay": 2, "file_type": "gif"}`,
		`{"location": ""}`,
		`not json`,
	} {
		resp := do(t, "PUT", srv.URL+"/api/snapshot", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, 0, filter.FrameDelay())
	assert.Equal(t, snapshot.FileTypeBMP, filter.FileType())
	assert.Equal(t, "image.bmp", filter.Location())
}

func TestFormatAndStats(t *testing.T) {
	filter, srv := newTestServer(t)
	require.NoError(t, filter.SetCaps(frame.Caps{Width: 4, Height: 2, Format: "RGB", Fixed: true}))
	require.NoError(t, filter.PushFrame(frame.Frame{Data: make([]byte, 24)}))

	resp := do(t, "GET", srv.URL+"/api/format", "")
	var format map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&format))
	assert.EqualValues(t, 4, format["width"])
	assert.EqualValues(t, 12, format["stride"])
	assert.Equal(t, "RGB", format["layout"])

	resp = do(t, "GET", srv.URL+"/api/stats", "")
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, uint64(1), status.Filter.FramesIn)
	assert.Equal(t, uint64(1), status.Filter.FramesOut)
	assert.Nil(t, status.Preview)
}

func TestStats_IncludesPreview(t *testing.T) {
	filter := snapshot.NewFilter(nil, nil)
	preview := output.NewMJPEGOutput(output.Config{FPS: 5})
	srv := httptest.NewServer(NewServer(filter, preview).Handler())
	defer srv.Close()

	resp := do(t, "GET", srv.URL+"/api/stats", "")
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.NotNil(t, status.Preview)
	assert.False(t, status.Preview.Running)
}

func TestEvents_StreamsCaptures(t *testing.T) {
	filter, srv := newTestServer(t)
	location := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, filter.SetLocation(location))
	require.NoError(t, filter.SetFileType("png"))
	require.NoError(t, filter.SetCaps(frame.Caps{Width: 2, Height: 2, Format: "RGB", Fixed: true}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := do(t, "POST", srv.URL+"/api/trigger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, filter.PushFrame(frame.Frame{Data: make([]byte, 12)}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev snapshot.CaptureEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, location, ev.Location)
	assert.Equal(t, snapshot.FileTypePNG, ev.FileType)
	assert.Empty(t, ev.Error)
	assert.NotEmpty(t, ev.ID)
	assert.FileExists(t, location)

	_, err = os.Stat(location)
	assert.NoError(t, err)
}

func TestIndex(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, "GET", srv.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = do(t, "GET", srv.URL+"/stream", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
