package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/bryanchriswhite/SnapshotFilter/internal/overlay"
	"github.com/disintegration/imaging"
)

// MJPEGOutput streams a downscaled preview of the passthrough frames as
// Motion JPEG over HTTP. Only packed RGB streams are previewed; other
// formats pass by untouched.
type MJPEGOutput struct {
	config  Config
	running bool
	mu      sync.RWMutex

	// Negotiated format, set from SetCaps
	capsMu   sync.RWMutex
	caps     frame.Caps
	warned   bool
	interval time.Duration

	// Last encoded frame, handed to new clients
	frameMu    sync.RWMutex
	lastJPEG   []byte
	lastUpdate time.Time

	// Connected clients
	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	// Optional status line drawn on preview frames
	status func() string
	banner *overlay.Banner

	// Stats
	frameCount uint64
	startTime  time.Time
}

// PreviewStats describes the preview stream
type PreviewStats struct {
	Running    bool      `json:"running"`
	Frames     uint64    `json:"frames"`
	Clients    int       `json:"clients"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	LastUpdate time.Time `json:"last_update"`
}

// NewMJPEGOutput creates a new MJPEG preview output
func NewMJPEGOutput(config Config) *MJPEGOutput {
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 80
	}
	var interval time.Duration
	if config.FPS > 0 {
		interval = time.Second / time.Duration(config.FPS)
	}
	return &MJPEGOutput{
		config:   config,
		interval: interval,
		clients:  make(map[chan []byte]struct{}),
		banner:   overlay.NewBanner(),
	}
}

// SetStatus installs a function whose text is drawn on every preview
// frame. Call before Start.
func (m *MJPEGOutput) SetStatus(status func() string) {
	m.status = status
}

// Start initializes the MJPEG output
// Note: The HTTP handler is registered separately via GetHTTPHandler()
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}

	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0

	logger.WithComponent("mjpeg").Info().
		Int("fps", m.config.FPS).
		Int("max_width", m.config.MaxWidth).
		Msg("Preview output started")
	return nil
}

// Stop cleanly shuts down the output
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.running = false

	// Close all client connections
	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("mjpeg").Info().Uint64("frames", m.frameCount).Msg("Preview output stopped")
	return nil
}

// Name returns the output type name
func (m *MJPEGOutput) Name() string {
	return "MJPEG HTTP Stream"
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// SetCaps records the stream geometry
func (m *MJPEGOutput) SetCaps(caps frame.Caps) error {
	m.capsMu.Lock()
	m.caps = caps
	m.warned = false
	m.capsMu.Unlock()
	return nil
}

// PushEOS needs no handling; clients keep the last frame
func (m *MJPEGOutput) PushEOS() error {
	return nil
}

// PushFrame encodes the frame and sends it to every connected client.
// Frames arriving faster than the configured FPS, or while nobody is
// watching, are skipped. Preview problems never fail the stream.
func (m *MJPEGOutput) PushFrame(f frame.Frame) error {
	if !m.IsRunning() {
		return nil
	}

	m.frameMu.RLock()
	due := m.interval == 0 || time.Since(m.lastUpdate) >= m.interval
	m.frameMu.RUnlock()
	if !due || m.ClientCount() == 0 {
		return nil
	}

	img := m.view(f.Data)
	if img == nil {
		return nil
	}

	jpegData, err := m.encode(img)
	if err != nil {
		logger.WithComponent("mjpeg").Warn().Err(err).Uint64("frame", f.Index).Msg("Failed to encode preview frame")
		return nil
	}

	m.frameMu.Lock()
	m.lastJPEG = jpegData
	m.lastUpdate = time.Now()
	m.frameMu.Unlock()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()

	// Broadcast to all clients
	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame
		}
	}
	m.clientsMu.RUnlock()

	return nil
}

// view wraps data as an image when the current caps are packed RGB
func (m *MJPEGOutput) view(data []byte) image.Image {
	m.capsMu.Lock()
	defer m.capsMu.Unlock()

	caps := m.caps
	if caps.Format != "RGB" {
		if !m.warned {
			m.warned = true
			logger.WithComponent("mjpeg").Warn().Str("format", caps.Format).Msg("Preview only supports RGB, skipping frames")
		}
		return nil
	}
	img := frame.NewRGB(data, caps.Width, caps.Height, caps.Width*frame.BytesPerPixelRGB)
	if img == nil {
		return nil
	}
	return img
}

// encode downscales to MaxWidth, draws the status line and compresses.
// The result no longer references the borrowed frame data.
func (m *MJPEGOutput) encode(img image.Image) ([]byte, error) {
	var text string
	if m.status != nil {
		text = m.status()
	}

	if m.config.MaxWidth > 0 && img.Bounds().Dx() > m.config.MaxWidth {
		img = imaging.Resize(img, m.config.MaxWidth, 0, imaging.Box)
	}
	if text != "" {
		// never draw into the borrowed frame
		var canvas draw.Image
		switch v := img.(type) {
		case *frame.RGB:
			canvas = v.ToRGBA()
		case draw.Image:
			canvas = v
		default:
			canvas = imaging.Clone(v)
		}
		m.banner.Render(canvas, text)
		img = canvas
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: m.config.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// ClientCount returns the number of connected stream clients
func (m *MJPEGOutput) ClientCount() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

// Stats returns the preview counters
func (m *MJPEGOutput) Stats() PreviewStats {
	m.mu.RLock()
	stats := PreviewStats{Running: m.running, Frames: m.frameCount}
	m.mu.RUnlock()

	m.capsMu.RLock()
	stats.Width, stats.Height = m.caps.Width, m.caps.Height
	m.capsMu.RUnlock()

	m.frameMu.RLock()
	stats.LastUpdate = m.lastUpdate
	m.frameMu.RUnlock()

	stats.Clients = m.ClientCount()
	return stats
}

// GetHTTPHandler returns an http.Handler for the MJPEG stream
// Mount this at /stream or similar endpoint
func (m *MJPEGOutput) GetHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithComponent("mjpeg")

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		m.frameMu.RLock()
		if m.lastJPEG != nil {
			frameChan <- m.lastJPEG
		}
		m.frameMu.RUnlock()

		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		clientCount := len(m.clients)
		m.clientsMu.Unlock()

		log.Info().Int("clients", clientCount).Msg("Preview client connected")

		// send headers now so clients don't wait for the first frame
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			clientCount := len(m.clients)
			m.clientsMu.Unlock()
			log.Info().Int("clients", clientCount).Msg("Preview client disconnected")
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case jpegData, ok := <-frameChan:
				if !ok {
					return
				}
				if err := writePart(w, jpegData); err != nil {
					return
				}
			}
		}
	}
}

func writePart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// GetStatsHandler returns an HTTP handler that reports preview statistics
func (m *MJPEGOutput) GetStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Stats())
	}
}
