package connection

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

type Config struct {
	URL         url.URL
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger

	// Timeout bounds a single RPC. Zero leaves the transport default in place.
	Timeout time.Duration

	// WebSocketEngine selects the client library for ws and wss URLs.
	// Empty means EngineGorilla.
	WebSocketEngine string
}

const (
	EngineGorilla = "gorilla"
	EngineGWS     = "gws"
)

// NewConfig creates a new Config with the record store endpoint specified by the URL.
// The URL should be a valid endpoint URL, such as "ws://localhost:8000" or "http://localhost:8000".
// It is not absolutely necessary to create a Config using this function,
// but it is recommended to use this function to ensure that everything needed for the connection is set up correctly.
func NewConfig(u *url.URL) *Config {
	return &Config{
		URL:         *u,
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Logger:      logger.New(slog.NewTextHandler(os.Stdout, nil)),
	}
}
