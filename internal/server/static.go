/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/guipratiko/Clerky-app/resources"
)

// manifestHeaders must reach the wire byte for byte; the installing device
// rejects the manifest when the content type differs.
var manifestHeaders = map[string]string{
	"Content-Type":                "application/xml; charset=utf-8",
	"Cache-Control":               "no-cache, no-store, must-revalidate",
	"Pragma":                      "no-cache",
	"Expires":                     "0",
	"Access-Control-Allow-Origin": "*",
}

// serveManifest re-reads the manifest from disk on every request so an
// operator can swap the file without a restart.
func (h *handler) serveManifest(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(h.manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.writePlain(w, http.StatusNotFound, "manifest.plist not found")
			return
		}
		h.logger.Error().Err(err).Str("path", h.manifestPath).Msg("failed reading manifest")
		h.writePlain(w, http.StatusInternalServerError, "failed to read manifest.plist")
		return
	}

	for k, v := range manifestHeaders {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error().Err(err).Msg("failed writing manifest body")
	}
}

func (h *handler) deviceInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resources.DeviceInfoJSON); err != nil {
		h.logger.Error().Err(err).Msg("failed writing device info")
	}
}

// serveStatic serves files below the public directory. The installation
// page is the root document; .plist files are forced to the XML content
// type the installer requires.
func (h *handler) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + r.PathValue("path"))
	if strings.Contains(rel, "..") {
		h.writePlain(w, http.StatusNotFound, "not found")
		return
	}
	if rel == "/" {
		rel = "/index.html"
	}

	name := filepath.Join(h.publicDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(name)
	if err != nil {
		if rel == "/index.html" && errors.Is(err, fs.ErrNotExist) {
			// No page shipped alongside the binary: fall back to the
			// embedded one so GET / always installs.
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(resources.InstallPage); err != nil {
				h.logger.Error().Err(err).Msg("failed writing install page")
			}
			return
		}
		h.writePlain(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error().Err(err).Msg("failed writing static body")
	}
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".plist" {
		// OTA installers refuse a manifest served as anything else.
		return "application/xml; charset=utf-8"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (h *handler) writePlain(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(msg)); err != nil {
		h.logger.Error().Err(err).Msg("failed writing response body")
	}
}
