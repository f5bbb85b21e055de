package http_post

import (
	"net/http"
	"time"
)

// defaultTimeout applies when the arguments block omits timeout.
const defaultTimeout = 5 * time.Second

// createHttpClient returns the client shared by every write of one sink.
func createHttpClient(timeout string) (*http.Client, error) {
	d := defaultTimeout
	if timeout != "" {
		var err error
		d, err = time.ParseDuration(timeout)
		if err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Timeout: d,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return client, nil
}

// destroyHttpClient closes any idle connections.
func destroyHttpClient(client *http.Client) {
	client.CloseIdleConnections()
}
