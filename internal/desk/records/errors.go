package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// PermissionDenied is shown instead of the backend text on a 403.
const PermissionDenied = "No tiene permisos para realizar esta acción"

// APIError is a non-2xx response. Detail is the raw "detail" member of the
// body, which the backend sends as a string, a list or a field map.
type APIError struct {
	Status int
	Detail json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("records api %d: %s", e.Status, strings.Join(e.Messages(), "; "))
}

// Forbidden reports an authorization rejection.
func (e *APIError) Forbidden() bool {
	return e.Status == http.StatusForbidden
}

// Messages flattens Detail into one message per leaf. Object members are
// visited in key order.
func (e *APIError) Messages() []string {
	var detail interface{}
	if len(e.Detail) > 0 {
		if err := json.Unmarshal(e.Detail, &detail); err != nil {
			detail = string(e.Detail)
		}
	}
	out := flatten(nil, detail)
	if len(out) == 0 {
		out = []string{http.StatusText(e.Status)}
	}
	return out
}

func flatten(out []string, v interface{}) []string {
	switch d := v.(type) {
	case nil:
		return out
	case string:
		if d == "" {
			return out
		}
		return append(out, d)
	case []interface{}:
		for _, item := range d {
			out = flatten(out, item)
		}
		return out
	case map[string]interface{}:
		// FastAPI style {"msg": ...} entries carry the text in msg.
		if msg, ok := d["msg"].(string); ok {
			return append(out, msg)
		}
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = flatten(out, d[k])
		}
		return out
	default:
		return append(out, fmt.Sprint(d))
	}
}

// UserMessage is the text to show a person for err.
func UserMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if apiErr.Forbidden() {
		return PermissionDenied
	}
	return strings.Join(apiErr.Messages(), "\n")
}
