package client

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const (
	defaultErrorMessage = "An error occurred"
	networkErrorMessage = "Network error"
)

// ErrNoRefreshToken is returned when a refresh is requested without a stored
// refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Kind classifies a failed call.
type Kind int

const (
	// KindServer is a non-401 response.
	KindServer Kind = iota
	// KindCredential is a 401 from an endpoint that does not take part in
	// token refresh (login, register).
	KindCredential
	// KindUnauthorized is a 401 that token refresh could not resolve.
	KindUnauthorized
	// KindRefreshExhausted means the refresh call itself failed and the
	// session was cleared.
	KindRefreshExhausted
	// KindNetwork means no response was received.
	KindNetwork
	// KindClient means the request could not be built or the response could
	// not be read.
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindCredential:
		return "credential"
	case KindUnauthorized:
		return "unauthorized"
	case KindRefreshExhausted:
		return "refresh_exhausted"
	case KindNetwork:
		return "network"
	case KindClient:
		return "client"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is the single error shape returned by Client for every failure.
// Status is 0 when no response was received.
type APIError struct {
	Message string
	Status  int
	Data    any
	Kind    Kind
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err ended the session or was a 401.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Status == 401 || apiErr.Kind == KindRefreshExhausted
}

// responseError builds an APIError from a received response. The message
// prefers the server's "message" field.
func responseError(resp *resty.Response, kind Kind) *APIError {
	body := resp.Body()

	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = defaultErrorMessage
	}

	return &APIError{
		Message: message,
		Status:  resp.StatusCode(),
		Data:    decodeData(body),
		Kind:    kind,
	}
}

func decodeData(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	return data
}
