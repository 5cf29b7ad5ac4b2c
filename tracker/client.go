package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"furrent/registry"
	"furrent/torrentfile"
)

// Client announces to a torrent's tracker(s) over HTTP(S) or UDP,
// depending on the announce URL's scheme. It satisfies furrent/engine's
// Announcer interface structurally.
type Client struct {
	http *http.Client
}

// NewClient builds a tracker client with a bounded per-request timeout.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 5 * time.Second}}
}

// Announce tries the primary announce URL, then every tier of the
// announce-list in order, returning the first tracker that answers. This
// mirrors BEP 12 fallback behavior: a dead primary tracker doesn't stall
// peer discovery as long as one fallback tier answers.
func (c *Client) Announce(ctx context.Context, d *torrentfile.Descriptor, peerID [20]byte) (registry.AnnounceResult, error) {
	urls := append([]string{d.Announce}, d.AnnounceList...)

	var lastErr error
	for _, raw := range urls {
		result, err := c.announceOne(ctx, raw, d, peerID)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("tracker: no announce URL configured")
	}
	return registry.AnnounceResult{}, fmt.Errorf("tracker: all announce URLs failed: %w", lastErr)
}

func (c *Client) announceOne(ctx context.Context, raw string, d *torrentfile.Descriptor, peerID [20]byte) (registry.AnnounceResult, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return registry.AnnounceResult{}, err
	}

	left := d.TotalSize()
	switch parsed.Scheme {
	case "http", "https":
		return httpAnnounce(c.http, raw, d.InfoHash, peerID, left)
	case "udp":
		return udpAnnounce(parsed.Host, d.InfoHash, peerID, left)
	default:
		return registry.AnnounceResult{}, fmt.Errorf("tracker: unsupported scheme %q", parsed.Scheme)
	}
}
