package main

import (
	"net/http"

	"github.com/NavarchProject/perfdash/pkg/client"
	"github.com/NavarchProject/perfdash/pkg/retry"
)

func newClient() *client.Client {
	rc := retry.None()
	if retries > 0 {
		rc = retry.NetworkConfig()
		rc.MaxAttempts = retries + 1
	}

	return client.New(apiAddr,
		client.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		client.WithRetry(rc),
	)
}
