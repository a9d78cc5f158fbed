// Command seed posts a JSON file of raw recipe records to a running server's
// bulk-import endpoint.
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
	"time"
)

func main() {
	var (
		server = flag.String("server", "http://localhost:8080", "server base URL")
		file   = flag.String("file", "seed.json", "path to a JSON array of raw recipe records")
		token  = flag.String("token", "", "bearer token with staff role")
	)
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("reading %s: %v", *file, err)
	}

	// Fail early on malformed input instead of round-tripping it.
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("%s is not a JSON array: %v", *file, err)
	}

	req, err := http.NewRequest(http.MethodPost, *server+"/api/v1/recipes/import", bytes.NewReader(data))
	if err != nil {
		log.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("import request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("import rejected (%d): %s", resp.StatusCode, body)
	}
	fmt.Printf("imported %d records: %s\n", len(records), body)
}
