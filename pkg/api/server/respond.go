package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// writeJSON encodes the payload with the given status code.
//
//nolint:errcheck // status is already written, nothing left to signal
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close() //nolint:errcheck // by design
	return json.NewDecoder(r.Body).Decode(target)
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return def
	}
	if ret, err := strconv.Atoi(val); err == nil {
		return ret
	}
	return def
}

// queryFloat reads a float query parameter. The second return value
// reports whether a valid value was present.
func queryFloat(r *http.Request, key string) (float64, bool) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0, false
	}
	ret, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return ret, true
}
