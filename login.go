package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/puzzlebox/internal/validation"
)

const nameCookieName = "puzzlebox_name"

type loginResponse struct {
	Valid  bool              `json:"isValid"`
	Name   string            `json:"name,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// playerName returns the name saved by a successful login, if any.
func playerName(r *http.Request) string {
	c, err := r.Cookie(nameCookieName)
	if err != nil {
		return ""
	}

	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}

	return name
}

func serveLogin(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req map[string]string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "invalid login request", http.StatusBadRequest)

			return
		}

		fields := map[validation.Field]string{
			validation.FirstName: "",
			validation.LastName:  "",
		}
		for name, value := range req {
			field, ok := validation.ParseField(name)
			if !ok {
				http.Error(w, "unknown login field "+strconv.Quote(name), http.StatusBadRequest)

				return
			}
			fields[field] = strings.TrimSpace(value)
		}

		resp := loginResponse{Valid: true}
		for field, value := range fields {
			result := validation.Validate(value, field)
			if result.Valid {
				continue
			}
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Valid = false
			resp.Errors[field.String()] = result.Error
		}

		if !resp.Valid {
			logf(cfg, "GAMES: Rejected login from %s", realIP(r))

			_ = writeJSON(w, http.StatusUnprocessableEntity, resp)

			return
		}

		resp.Name = fields[validation.FirstName] + " " + fields[validation.LastName]

		http.SetCookie(w, &http.Cookie{
			Name:     nameCookieName,
			Value:    url.QueryEscape(resp.Name),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		logf(cfg, "GAMES: %q logged in from %s", resp.Name, realIP(r))

		_ = writeJSON(w, http.StatusOK, resp)
	}
}

func serveLogout(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		http.SetCookie(w, &http.Cookie{
			Name:     nameCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		w.WriteHeader(http.StatusNoContent)
	}
}

// serveSession reports the name saved by a previous login.
func serveSession(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)
		w.Header().Set("Cache-Control", "no-store")

		name := playerName(r)

		_ = writeJSON(w, http.StatusOK, loginResponse{Valid: name != "", Name: name})
	}
}

func registerLogin(cfg *Config, path string, mux *httprouter.Router) {
	mux.GET(cfg.prefix+path, serveSession(cfg))
	mux.POST(cfg.prefix+path, serveLogin(cfg))
	mux.DELETE(cfg.prefix+path, serveLogout(cfg))
}
