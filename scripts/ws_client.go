// Package main runs a demo client: it listens for solve events over WebSocket and posts two
// small problems, one that cannot be served in time and one that can.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// demoPayload is one rider picked up at node 1 and dropped at node 2. With a first leg of
// 600000000000 the pickup window [0,5] cannot be met.
func demoPayload(firstLeg int64) map[string]any {
	return map[string]any{
		"time_matrix": [][]int64{
			{0, firstLeg, 20, 10},
			{10, 0, 10, 20},
			{20, 10, 0, 10},
			{10, 20, 10, 0},
		},
		"time_windows":             [][2]int64{{0, 100}, {0, 5}, {0, 50}, {0, 100}},
		"no_of_riders_per_request": []int64{0, 1, -1, 0},
		"vehicle_capacity":         1,
		"pickup_and_dropoffs":      [][2]int{{1, 2}},
		"max_route_duration":       100,
	}
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solve/events"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	for _, firstLeg := range []int64{600000000000, 5} {
		body, _ := json.Marshal(demoPayload(firstLeg))
		req, _ := http.NewRequest(http.MethodPost, base+"/solve", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-Id", "t_demo")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		out, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		log.Printf("POST /solve -> %d %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	// Wait briefly to receive the events
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
