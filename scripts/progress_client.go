// Package main runs a demo WebSocket client that tails solver progress.
//
//	go run ./scripts -addr localhost:8080 -run <run-id>
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type  string          `json:"type"`
	RunID string          `json:"runId"`
	Time  time.Time       `json:"time"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	addr := flag.String("addr", "", "side-car address (default localhost:$PORT or localhost:8080)")
	run := flag.String("run", "", "run id to follow; empty follows every run")
	flag.Parse()

	if *addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		*addr = "localhost:" + port
	}

	// Check the side-car is up before dialing.
	resp, err := http.Get("http://" + *addr + "/healthz")
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("healthz: %s", resp.Status)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/v1/progress/ws"}
	if *run != "" {
		u.RawQuery = url.Values{"run": {*run}}.Encode()
	}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var e event
			if err := c.ReadJSON(&e); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
					log.Printf("stream closed: %s", ce.Text)
				} else {
					log.Printf("read: %v", err)
				}
				return
			}
			log.Printf("%s %s %s", e.RunID, e.Type, string(e.Data))
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	select {
	case <-done:
	case <-interrupt:
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
