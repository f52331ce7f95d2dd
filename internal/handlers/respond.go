package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const maxFormBytes = 1 << 20

// params reads a request field from the query string, then the form body.
// Empty values count as absent.
type params struct {
	query url.Values
	body  url.Values
}

func readParams(w http.ResponseWriter, r *http.Request) params {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	_ = r.ParseForm()
	return params{query: r.URL.Query(), body: r.PostForm}
}

func (p params) get(name string) string {
	if v := p.query.Get(name); v != "" {
		return v
	}
	return p.body.Get(name)
}

// int parses a field as an integer, or returns def.
func (p params) int(name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(p.get(name)))
	if err != nil {
		return def
	}
	return n
}

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]{0,127}$`)

// callback returns the JSONP callback name, or "" when absent or unsafe.
func (p params) callback() string {
	cb := strings.TrimSpace(p.get("response"))
	if !callbackPattern.MatchString(cb) {
		return ""
	}
	return cb
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeJSONP wraps the JSON body in callback(...) when a callback is set.
func writeJSONP(w http.ResponseWriter, callback string, status int, v any) {
	if callback == "" {
		writeJSON(w, status, v)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(callback + "("))
	w.Write(body)
	w.Write([]byte(")"))
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorBody{Error: msg})
}
