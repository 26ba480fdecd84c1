package customHttpClient

import (
	"net/http"

	"github.com/akolanti/StreamAPI/internal/config"
)

// Pooled transport shared by outbound embedding calls so repeated per-chunk
// requests reuse connections instead of paying the handshake every time.
var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

func Client() *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   config.StageCallTimeout,
	}
}
