// Command shadow_compare replays a set of read endpoints against both the
// legacy admin console and this service and reports response differences.
// Intended for cutover verification; run it with a token for an admin user
// that exists in both systems.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type result struct {
	Endpoint      endpoint
	NewStatus     int
	LegacyStatus  int
	StatusMatch   bool
	BodyMatch     bool
	NewLatency    time.Duration
	LegacyLatency time.Duration
	Err           error
}

var defaultEndpoints = []endpoint{
	{Method: "GET", Path: "/health", Critical: true},
	{Method: "GET", Path: "/api/v1/exceptions", Critical: true},
	{Method: "GET", Path: "/api/v1/exceptions/stats", Critical: true},
	{Method: "GET", Path: "/api/v1/registrations/pending", Critical: true},
	{Method: "GET", Path: "/api/v1/penalties/report", Critical: true},
	{Method: "GET", Path: "/api/v1/dashboard", Critical: false},
	{Method: "GET", Path: "/api/v1/notifications", Critical: false},
}

func main() {
	var (
		newBase    string
		legacyBase string
		token      string
		plan       string
		timeout    time.Duration
	)
	flag.StringVar(&newBase, "new-base", "http://localhost:8080", "new API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy API base URL")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "bearer token sent to both systems")
	flag.StringVar(&plan, "plan", "", "optional JSON file overriding the endpoint list")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	endpoints := defaultEndpoints
	if plan != "" {
		loaded, err := loadPlan(plan)
		if err != nil {
			log.Fatalf("failed to load plan: %v", err)
		}
		endpoints = loaded
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0

	fmt.Println("shadow compare")
	for _, ep := range endpoints {
		res := compare(client, newBase, legacyBase, token, ep)
		report(res)
		if ep.Critical && (res.Err != nil || !res.StatusMatch || !res.BodyMatch) {
			breaking++
		}
	}

	fmt.Printf("breaking differences: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadPlan(path string) ([]endpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var endpoints []endpoint
	if err := json.Unmarshal(raw, &endpoints); err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("plan %s is empty", path)
	}
	return endpoints, nil
}

func compare(client *http.Client, newBase, legacyBase, token string, ep endpoint) result {
	res := result{Endpoint: ep}

	newStatus, newBody, newLatency, err := fetch(client, newBase, token, ep)
	if err != nil {
		res.Err = fmt.Errorf("new api: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyLatency, err := fetch(client, legacyBase, token, ep)
	if err != nil {
		res.Err = fmt.Errorf("legacy api: %w", err)
		return res
	}

	res.NewStatus, res.LegacyStatus = newStatus, legacyStatus
	res.NewLatency, res.LegacyLatency = newLatency, legacyLatency
	res.StatusMatch = newStatus == legacyStatus
	res.BodyMatch = bodiesEqual(newBody, legacyBody)
	return res
}

func fetch(client *http.Client, base, token string, ep endpoint) (int, []byte, time.Duration, error) {
	url := strings.TrimRight(base, "/") + ep.Path
	req, err := http.NewRequest(strings.ToUpper(ep.Method), url, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// bodiesEqual compares responses structurally so that key order and
// whitespace differences between the two implementations do not count
// as drift.
func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var av, bv interface{}
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func report(res result) {
	state := "ok"
	switch {
	case res.Err != nil:
		state = "error"
	case !res.StatusMatch || !res.BodyMatch:
		state = "diff"
	}
	fmt.Printf("[%s] %s %s\n", state, res.Endpoint.Method, res.Endpoint.Path)
	if res.Err != nil {
		fmt.Printf("  %v\n", res.Err)
		return
	}
	fmt.Printf("  status %d/%d latency %s/%s body-match=%t\n",
		res.NewStatus, res.LegacyStatus, res.NewLatency, res.LegacyLatency, res.BodyMatch)
}
