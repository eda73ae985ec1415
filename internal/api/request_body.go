package api

import (
	"encoding/json"
	"net/http"
)

// Execute bodies carry code inline, so the JSON cap leaves headroom over the
// largest accepted snippet; bigger payloads belong on the files endpoint.
const maxJSONBodyBytes int64 = 2 << 20

// decodeJSONBody decodes a size-capped JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
