// Package services holds clients for the external HTTP services the backend calls.
package services

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// postJSON sends body to url and returns the raw response body of a 2xx reply.
func postJSON(url string, body interface{}, timeout time.Duration) ([]byte, error) {
	agent := fiber.Post(url)
	agent.JSONEncoder(json.Marshal)
	agent.JSON(body)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return nil, errors.Wrapf(err, "parse %s", url)
	}

	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Wrapf(errs[0], "POST %s", url)
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("POST %s: status %d", url, code)
	}
	return resp, nil
}
