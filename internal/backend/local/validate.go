package local

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

const codeMissingRelation = "validation_missing_rel_records"

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

// normalize converts input into JSON-native values and checks every known
// field against the schema. Unknown fields are dropped. When base is non-nil
// (update), fields absent from input keep their stored value.
func normalize(s *schema, input backend.Record, base map[string]any) (map[string]any, map[string]backend.FieldError) {
	var plain map[string]any
	if err := backend.Decode(input, &plain); err != nil {
		return nil, map[string]backend.FieldError{"": {Code: backend.CodeInvalidValue, Message: err.Error()}}
	}

	out := make(map[string]any, len(s.fields))
	for k, v := range base {
		out[k] = v
	}
	failures := map[string]backend.FieldError{}

	for _, f := range s.fields {
		raw, present := plain[f.name]
		if !present {
			if _, ok := out[f.name]; !ok {
				out[f.name] = zeroValue(f)
			}
			continue
		}
		v, fe := coerce(f, raw)
		if fe != nil {
			failures[f.name] = *fe
			continue
		}
		out[f.name] = v
	}

	for _, f := range s.fields {
		if _, failed := failures[f.name]; failed || !f.required {
			continue
		}
		if isEmpty(out[f.name]) {
			failures[f.name] = backend.FieldError{Code: backend.CodeRequired, Message: "Cannot be blank."}
		}
	}
	return out, failures
}

func zeroValue(f field) any {
	if f.multi {
		return []any{}
	}
	switch f.kind {
	case kindBool:
		return false
	case kindNumber:
		return float64(0)
	}
	return ""
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return false
}

func invalid(format string, args ...any) *backend.FieldError {
	return &backend.FieldError{Code: backend.CodeInvalidValue, Message: fmt.Sprintf(format, args...)}
}

func coerce(f field, raw any) (any, *backend.FieldError) {
	if f.multi {
		var items []any
		switch x := raw.(type) {
		case nil:
			items = []any{}
		case []any:
			items = x
		case string:
			if x != "" {
				items = []any{x}
			} else {
				items = []any{}
			}
		default:
			return nil, invalid("expected a list")
		}
		out := make([]any, 0, len(items))
		seen := map[string]bool{}
		for _, item := range items {
			v, fe := coerceOne(f, item)
			if fe != nil {
				return nil, fe
			}
			s, _ := v.(string)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		return out, nil
	}
	return coerceOne(f, raw)
}

func coerceOne(f field, raw any) (any, *backend.FieldError) {
	switch f.kind {
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid("expected a boolean")
		}
		return b, nil
	case kindNumber:
		n, ok := raw.(float64)
		if !ok {
			return nil, invalid("expected a number")
		}
		return n, nil
	}

	s, ok := raw.(string)
	if raw == nil {
		s, ok = "", true
	}
	if !ok {
		return nil, invalid("expected a string")
	}

	switch f.kind {
	case kindEmail:
		s = strings.TrimSpace(s)
		if s == "" {
			return "", nil
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || !strings.Contains(s, ".") {
			return nil, &backend.FieldError{Code: backend.CodeInvalidEmail, Message: "Must be a valid email address."}
		}
		return strings.ToLower(s), nil
	case kindDate:
		d, err := domain.ParseDateTime(s)
		if err != nil {
			return nil, invalid("Must be a valid date.")
		}
		return d.String(), nil
	case kindSelect:
		if s == "" {
			return "", nil
		}
		for _, allowed := range f.values {
			if s == allowed {
				return s, nil
			}
		}
		return nil, invalid("Invalid value %s.", s)
	}
	return s, nil
}

// checkPassword validates the password pair sent with an auth record create
// or password change.
func checkPassword(input backend.Record, failures map[string]backend.FieldError) string {
	password, _ := input["password"].(string)
	confirm, _ := input["passwordConfirm"].(string)
	switch {
	case password == "":
		failures["password"] = backend.FieldError{Code: backend.CodeRequired, Message: "Cannot be blank."}
	case len(password) < minPasswordLen || len(password) > maxPasswordLen:
		failures["password"] = backend.FieldError{
			Code:    backend.CodeLengthOutRange,
			Message: fmt.Sprintf("The length must be between %d and %d.", minPasswordLen, maxPasswordLen),
		}
	}
	if confirm != password {
		failures["passwordConfirm"] = backend.FieldError{Code: backend.CodeValuesMismatch, Message: "Values don't match."}
	}
	return password
}

// relationIDs lists the ids referenced by a relation field value.
func relationIDs(v any) []string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
