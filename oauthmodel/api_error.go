package oauthmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
)

// APIErrorKind tags which shape an API error body had.
type APIErrorKind int

const (
	// Unrecognized is any body that is neither a string detail nor a list of field errors.
	Unrecognized APIErrorKind = iota
	// SingleMessage is {"detail": "..."}.
	SingleMessage
	// FieldErrors is {"detail": [{"loc": [...], "msg": "..."}, ...]}.
	FieldErrors
)

func (k APIErrorKind) String() string {
	switch k {
	case SingleMessage:
		return "single_message"
	case FieldErrors:
		return "field_errors"
	default:
		return "unrecognized"
	}
}

// FieldError is one structured validation error.
type FieldError struct {
	Loc []string
	Msg string
}

// Path joins the location segments with dots, e.g. "body.email".
func (f FieldError) Path() string {
	return strings.Join(f.Loc, ".")
}

// APIError is the decoded error body of a failed API call.
type APIError struct {
	Kind    APIErrorKind
	Detail  string       // set for SingleMessage
	Fields  []FieldError // set for FieldErrors
	Message string       // top-level "message", whatever the kind
}

type rawFieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// ParseAPIError decodes an error body. It never fails: bodies that aren't JSON
// objects, or whose detail has an unexpected shape, come back as Unrecognized.
func ParseAPIError(body []byte) APIError {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message any             `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return APIError{Kind: Unrecognized}
	}

	apiErr := APIError{Kind: Unrecognized}
	if msg, ok := envelope.Message.(string); ok {
		apiErr.Message = msg
	}

	detail := bytes.TrimSpace(envelope.Detail)
	if len(detail) == 0 {
		return apiErr
	}

	switch detail[0] {
	case '"':
		if err := json.Unmarshal(detail, &apiErr.Detail); err == nil {
			apiErr.Kind = SingleMessage
		}
	case '[':
		var raw []rawFieldError
		if err := json.Unmarshal(detail, &raw); err != nil {
			return apiErr
		}
		apiErr.Kind = FieldErrors
		apiErr.Fields = make([]FieldError, 0, len(raw))
		for _, r := range raw {
			loc := make([]string, 0, len(r.Loc))
			for _, segment := range r.Loc {
				loc = append(loc, fmt.Sprint(segment))
			}
			apiErr.Fields = append(apiErr.Fields, FieldError{Loc: loc, Msg: r.Msg})
		}
	}
	return apiErr
}

// Messages holds the fallback texts for one operation.
type Messages struct {
	Unrecognized  string // the API answered with a body of unknown shape
	NoResponse    string // no usable API answer (network error, protocol mismatch, empty body)
	HonourMessage bool   // use a top-level "message" before falling back to Unrecognized
	RequireMsg    bool   // field errors only count when the first entry has a msg
}

var (
	LoginMessages = Messages{
		Unrecognized: "Invalid username or password.",
		NoResponse:   "An error occurred during login. Please try again.",
	}
	SignupMessages = Messages{
		Unrecognized:  "An error occurred during signup.",
		NoResponse:    "An error occurred during signup. Please try again.",
		HonourMessage: true,
		RequireMsg:    true,
	}
)

// Text maps the error to the string shown to the user.
func (e APIError) Text(m Messages) string {
	switch e.Kind {
	case SingleMessage:
		return e.Detail
	case FieldErrors:
		if m.RequireMsg && (len(e.Fields) == 0 || e.Fields[0].Msg == "") {
			break
		}
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Path()+" - "+f.Msg)
		}
		return strings.Join(parts, "; ")
	}
	if m.HonourMessage && e.Message != "" {
		return e.Message
	}
	return m.Unrecognized
}

// ResponseError is returned for any non-2xx API response.
type ResponseError struct {
	StatusCode int
	Body       []byte
	API        APIError
}

// NewResponseError decodes body into the returned error.
func NewResponseError(statusCode int, body []byte) *ResponseError {
	return &ResponseError{
		StatusCode: statusCode,
		Body:       body,
		API:        ParseAPIError(body),
	}
}

func (e *ResponseError) Error() string {
	if e.API.Kind == SingleMessage {
		return fmt.Sprintf("api responded %d: %s", e.StatusCode, e.API.Detail)
	}
	return fmt.Sprintf("api responded %d", e.StatusCode)
}

// HasBody reports whether the response carried any payload.
func (e *ResponseError) HasBody() bool {
	return len(bytes.TrimSpace(e.Body)) > 0
}

// IsUnauthorized reports whether err is, or wraps, a 401 response.
func IsUnauthorized(err error) bool {
	var respErr *ResponseError
	return apperrors.As(err, &respErr) && respErr.StatusCode == http.StatusUnauthorized
}

// Describe turns any error from a login or signup attempt into a display string.
func Describe(err error, m Messages) string {
	var respErr *ResponseError
	if !apperrors.As(err, &respErr) || !respErr.HasBody() {
		return m.NoResponse
	}
	return respErr.API.Text(m)
}
