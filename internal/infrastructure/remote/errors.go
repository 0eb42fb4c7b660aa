package remote

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// summaryKeys carry a single human-readable message, in order of preference.
var summaryKeys = []string{"detail", "error", "message"}

const nonFieldErrors = "non_field_errors"

// classify turns a non-2xx response into a *domain.RemoteError.
//
//	401         → InvalidCredential
//	404         → NotFound
//	anything else → Rejected
func classify(op string, status int, body []byte) error {
	kind := domain.ErrRejected
	switch status {
	case http.StatusUnauthorized:
		kind = domain.ErrInvalidCredential
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	}

	msg, fields := parseErrorBody(body)
	return &domain.RemoteError{Kind: kind, Op: op, Status: status, Message: msg, Fields: fields}
}

// parseErrorBody understands the backend's error payloads: either a summary
// ({"detail": "..."}) or a field map ({"email": ["..."]}). Unparsable bodies
// yield no message and no fields.
func parseErrorBody(body []byte) (string, domain.FieldErrors) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	var msg string
	for _, key := range summaryKeys {
		var s string
		if v, ok := raw[key]; ok && json.Unmarshal(v, &s) == nil && s != "" {
			msg = s
			break
		}
	}

	fields := make(domain.FieldErrors)
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if isSummaryKey(key) {
			continue
		}
		if list := messages(raw[key]); len(list) > 0 {
			fields[key] = list
		}
	}
	if msg == "" {
		if list := fields[nonFieldErrors]; len(list) > 0 {
			msg = list[0]
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return msg, fields
}

// messages decodes either a list of strings or a single string.
func messages(v json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

func isSummaryKey(key string) bool {
	for _, k := range summaryKeys {
		if k == key {
			return true
		}
	}
	return false
}
