package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"mindmatch/internal/config"
	"mindmatch/internal/realtime"
	"mindmatch/internal/room"
)

// Handler holds dependencies for the relay's HTTP handlers.
type Handler struct {
	manager  *Manager
	cfg      *config.ServerConfig
	upgrader websocket.Upgrader
}

// NewHandler creates a handler backed by the given hub manager.
func NewHandler(manager *Manager, cfg *config.ServerConfig) *Handler {
	return &Handler{
		manager: manager,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Server.WSReadBufferSize,
			WriteBufferSize: cfg.Server.WSWriteBufferSize,
			// Rooms are joined by code, not by origin; any browser client
			// may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades a channel subscription. The topic comes from the URL
// path and the presence key from the query string; one websocket connection
// carries exactly one channel.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if topic == "" {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing presence key", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: upgrade failed for %s: %v", topic, err)
		return
	}
	conn.SetReadLimit(h.cfg.Server.MaxFrameSize)

	c := &client{
		conn: conn,
		send: make(chan realtime.Frame, sendBuffer),
		key:  key,
	}

	// A hub can shut down between lookup and registration when its last
	// client leaves; retry against a fresh one.
	var hb *hub
	for {
		hb = h.manager.get(topic)
		if hb.tryRegister(c) {
			break
		}
	}

	go c.writePump()
	c.readPump(hb)
}

// ListRooms serves GET /rooms: all joinable rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.manager.Rooms()})
}

// GetRoom serves GET /room/{code}: a single room's directory entry.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := room.NormalizeRoomCode(chi.URLParam(r, "code"))

	info, err := h.manager.Room(code)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": info})
}

// RoomQR serves GET /room/{code}/qr: a PNG QR code for the room's join
// link, so a phone can scan its way into the lobby.
func (h *Handler) RoomQR(w http.ResponseWriter, r *http.Request) {
	code := room.NormalizeRoomCode(chi.URLParam(r, "code"))

	if _, err := h.manager.Room(code); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "room not found"})
		return
	}

	png, err := joinQRCode(joinURL(r, code))
	if err != nil {
		log.Printf("relay: qr generation failed for %s: %v", code, err)
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// joinQRCode renders a join URL as a PNG QR code.
func joinQRCode(url string) ([]byte, error) {
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	var buf bytes.Buffer
	wr := standard.NewWithWriter(nopWriteCloser{&buf},
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8),
	)

	if err := qrc.Save(wr); err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	return buf.Bytes(), nil
}

func joinURL(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/room/%s", scheme, r.Host, code)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("relay: response encoding failed: %v", err)
	}
}
