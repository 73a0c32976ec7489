package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

const maxErrorBody = 1 << 20

// ResponseError describes a non-2xx response from an upstream API.
type ResponseError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
	// Issues holds machine-readable detail codes when the upstream reports
	// them, e.g. "INSTRUMENT_DECLINED".
	Issues []string
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s returned status %d", e.Service, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *ResponseError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return apperrors.ErrConflict
	case e.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.ErrPaymentFailed
	case IsClientError(e.StatusCode):
		return apperrors.ErrInvalidInput
	case e.StatusCode >= 500:
		return apperrors.ErrServiceUnavail
	default:
		return nil
	}
}

// HasIssue reports whether the upstream listed the given detail code.
func (e *ResponseError) HasIssue(issue string) bool {
	for _, i := range e.Issues {
		if strings.EqualFold(i, issue) {
			return true
		}
	}
	return false
}

// errorBody accepts both the local envelope ({"error":{"code","message"}})
// and the flat {"name","message","details":[{"issue"}]} shape used by
// payment APIs.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

// ParseResponseError consumes and closes resp.Body and returns a
// *ResponseError describing it.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	re := &ResponseError{Service: service, StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		re.Message = fmt.Sprintf("read body: %v", err)
		return re
	}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		re.Message = strings.TrimSpace(string(raw))
		return re
	}

	switch {
	case body.Error != nil:
		re.Code, re.Message = body.Error.Code, body.Error.Message
	default:
		re.Code, re.Message = body.Name, body.Message
	}
	for _, d := range body.Details {
		if d.Issue != "" {
			re.Issues = append(re.Issues, d.Issue)
		}
	}
	if re.Code == "" && re.Message == "" {
		re.Message = strings.TrimSpace(string(raw))
	}
	return re
}

// IsClientError reports whether status is a 4xx code.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
