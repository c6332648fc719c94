package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zip"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/awg-tools/portal/pkg/models"
)

const qrImageSize = 400

// DownloadHandler serves the sensitive artifacts: the full config text,
// its QR encoding and the zip bundle. All three contain the client's
// private key and sit behind the auth gate; the bundle additionally
// consumes the one-time download marker.
type DownloadHandler struct {
	clients ClientDirectory
}

func NewDownloadHandler(clients ClientDirectory) *DownloadHandler {
	return &DownloadHandler{clients: clients}
}

func (h *DownloadHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	config, err := h.clients.SanitizedConfig(r.Context(), name)
	if err != nil {
		respondClientError(w, err, "failed to fetch config")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(config))
}

func (h *DownloadHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	config, err := h.clients.SanitizedConfig(r.Context(), name)
	if err != nil {
		respondClientError(w, err, "failed to fetch config")
		return
	}

	png, err := qrcode.Encode(config, qrcode.Medium, qrImageSize)
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	respondJSON(w, http.StatusOK, models.QRCodeResponse{
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

// GetBundle streams a zip of the config, its QR PNG and an instructions
// file. The first successful request consumes the client's one-time
// download marker; later requests are refused unless force=true is given.
func (h *DownloadHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	config, err := h.clients.SanitizedConfig(r.Context(), name)
	if err != nil {
		respondClientError(w, err, "failed to fetch config")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if !force {
		claimed, err := h.clients.ClaimConfigDownload(r.Context(), name)
		if err != nil {
			respondErrorJSON(w, http.StatusInternalServerError, "failed to record download")
			return
		}
		if !claimed {
			respondErrorJSON(w, http.StatusForbidden,
				"config bundle already downloaded, repeat with force=true to download again")
			return
		}
	}

	png, err := qrcode.Encode(config, qrcode.Medium, qrImageSize)
	if err != nil {
		respondErrorJSON(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-vpn-config.zip"`, name))

	zw := zip.NewWriter(w)
	defer zw.Close()

	entries := []struct {
		name string
		data []byte
	}{
		{name + ".conf", []byte(config)},
		{name + "-qr.png", png},
		{"README.txt", []byte(bundleReadme(name))},
	}
	for _, entry := range entries {
		f, err := zw.Create(entry.name)
		if err != nil {
			return
		}
		if _, err := f.Write(entry.data); err != nil {
			return
		}
	}
}

func bundleReadme(name string) string {
	return fmt.Sprintf(`AmneziaWG VPN Configuration for %s
========================================

This archive contains:
- %s.conf - VPN configuration file
- %s-qr.png - QR code for mobile app

Installation Instructions:
--------------------------

For Desktop (Windows/macOS/Linux):
1. Install AmneziaVPN client from https://amnezia.org
2. Import the %s.conf file

For Mobile (iOS/Android):
1. Install AmneziaVPN app from App Store / Google Play
2. Scan the QR code (%s-qr.png) or import the config file

SECURITY WARNING:
-----------------
This configuration contains your private VPN key.
Keep it secure and do not share with others.

Generated: %s
`, name, name, name, name, name, time.Now().UTC().Format(time.RFC3339))
}
