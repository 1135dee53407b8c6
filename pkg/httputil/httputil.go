package httputil

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

// Client is a thin wrapper around http.Client with a request timeout given
// at construction time.
type Client struct {
	inner *http.Client
}

// NewClient returns a Client whose requests time out after the given number
// of milliseconds.
func NewClient(requestTimeout int) *Client {
	return &Client{
		inner: &http.Client{
			Timeout: time.Duration(requestTimeout) * time.Millisecond,
		},
	}
}

// NewHTTPRequest performs an HTTP call and returns status code and raw body.
func (c *Client) NewHTTPRequest(
	method, url, bodyString string, header map[string]string,
) (int, string, error) {
	switch method {
	case "GET":
		return c.do("GET", url, "", header)
	case "POST":
		return c.do("POST", url, bodyString, header)
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}
}

func (c *Client) do(
	method, url, bodyString string, header map[string]string,
) (int, string, error) {
	var body *strings.Reader
	if bodyString != "" {
		body = strings.NewReader(bodyString)
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := c.inner.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := ioutil.ReadAll(rs.Body)
	if err != nil {
		return 0, "", err
	}

	return rs.StatusCode, string(bodyBytes), nil
}
