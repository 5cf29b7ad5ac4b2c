// Command furrentctl adds a single .torrent file to a Furrent engine and
// renders its download progress until it reaches a terminal state.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"

	"furrent/config"
	"furrent/downloader"
	"furrent/engine"
	"furrent/iostore"
	"furrent/logging"
	"furrent/registry"
	"furrent/tracker"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: furrentctl <path-to-torrent> [config-file]")
		os.Exit(1)
	}
	torrentPath := os.Args[1]
	configPath := ""
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(logrus.InfoLevel)
	log := logging.For(logger, "furrentctl")

	var peerID [20]byte
	copy(peerID[:], []byte("-FR0001-"))
	rand.Read(peerID[8:])

	f := engine.New(cfg, tracker.NewClient(), downloader.New(peerID), iostore.NewDiskWriter(), logging.For(logger, "engine"))
	defer f.Close()

	id, err := f.AddTorrent(context.Background(), torrentPath)
	if err != nil {
		log.WithError(err).Fatal("failed to add torrent")
	}

	watch(f, id)
}

func watch(f *engine.Furrent, id registry.TorrentID) {
	uiprogress.Start()
	defer uiprogress.Stop()

	g, ok := f.GetGUIDataOne(id)
	if !ok {
		return
	}
	bar := uiprogress.AddBar(g.Total)
	bar.AppendCompleted()
	bar.AppendFunc(func(*uiprogress.Bar) string {
		cur, _ := f.GetGUIDataOne(id)
		return "pieces: " + strconv.FormatInt(cur.Processed, 10) + "/" + strconv.Itoa(cur.Total)
	})
	bar.AppendElapsed()

	for {
		cur, ok := f.GetGUIDataOne(id)
		if !ok {
			return
		}
		bar.Set(int(cur.Processed))
		switch cur.State {
		case registry.StateCompleted, registry.StateError, registry.StateStopped:
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}
