package tracker

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jackpal/bencode-go"

	"furrent/registry"
)

// httpResponse is the fixed shape of a compact HTTP tracker announce
// reply: an announce interval and a compact peer string.
type httpResponse struct {
	Interval int    `bencode:"interval"`
	Peers    string `bencode:"peers"`
}

func httpAnnounce(client *http.Client, announceURL string, infoHash, peerID [20]byte, left int64) (registry.AnnounceResult, error) {
	base, err := url.Parse(announceURL)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	params := url.Values{
		"info_hash":  []string{string(infoHash[:])},
		"peer_id":    []string{string(peerID[:])},
		"port":       []string{"6881"},
		"uploaded":   []string{"0"},
		"downloaded": []string{"0"},
		"compact":    []string{"1"},
		"left":       []string{strconv.FormatInt(left, 10)},
	}
	base.RawQuery = params.Encode()

	resp, err := client.Get(base.String())
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	defer resp.Body.Close()

	var tr httpResponse
	if err := bencode.Unmarshal(resp.Body, &tr); err != nil {
		return registry.AnnounceResult{}, err
	}

	peers, err := unmarshalPeers([]byte(tr.Peers))
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	return registry.AnnounceResult{
		Interval: time.Duration(tr.Interval) * time.Second,
		Peers:    peers,
	}, nil
}
