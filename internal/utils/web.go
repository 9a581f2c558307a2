package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
)

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	if e, ok := err.(*internal_errors.ErrorWithStatusCode); ok {
		http.Error(w, err.Error(), e.StatusCode)
		return
	}
	// default error is 500
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// NormalizeIP strips a trailing :port suffix and IPv6 bracket notation from
// a raw address and returns the bare IP string. Returns an error if what
// remains is not a valid IP.
func NormalizeIP(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if net.ParseIP(raw) == nil {
		return "", fmt.Errorf("invalid IP address: %s", raw)
	}
	return raw, nil
}

// ClientIP extracts the client IP for a request. When trustForwarded is set
// the first valid entry of X-Forwarded-For wins; otherwise only RemoteAddr
// is consulted (the header is trivially spoofable without a proxy in front).
func ClientIP(r *http.Request, trustForwarded bool) (string, error) {
	if trustForwarded {
		for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if ip, err := NormalizeIP(part); err == nil {
				return ip, nil
			}
		}
	}
	return NormalizeIP(r.RemoteAddr)
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400}
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(body); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: 400}
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400}
	}
	return nil
}
