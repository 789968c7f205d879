/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/moviematch/rooms"
)

const qrSize = 320

type roomStatus struct {
	Code       string    `json:"code"`
	UserCount  int       `json:"userCount"`
	MovieCount int       `json:"movieCount"`
	MatchCount int       `json:"matchCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func serveRoomStatus(cfg *Config, reg *rooms.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		securityHeaders(cfg, w)
		w.Header().Set("Cache-Control", "no-store")

		st, err := reg.Status(p.ByName("code"))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		data, err := json.Marshal(roomStatus{
			Code:       st.Code,
			UserCount:  st.Occupants,
			MovieCount: st.Candidates,
			MatchCount: st.Matches,
			CreatedAt:  st.CreatedAt,
		})
		if err != nil {
			errs <- err
			http.Error(w, "internal error", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// joinURL is the address a second person opens to join code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

func serveRoomQR(cfg *Config, reg *rooms.Registry, log *zap.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		code := p.ByName("code")
		if _, ok := reg.Lookup(code); !ok {
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		log.Debug("served qr code",
			zap.String("code", code),
			zap.String("size", humanReadableSize(int64(written))),
			zap.String("remote", realIP(r)),
			zap.Duration("elapsed", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}
