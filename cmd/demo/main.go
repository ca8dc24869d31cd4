// Drives the analysis API end to end with the demo slow-query suite:
// create a session, poll once a second until every job settles, print
// the suggestions, then delete the session.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

var slowQueries = []string{
	`SELECT p.product_id, p.name,
	        (SELECT SUM(oi.qty) FROM order_items oi WHERE oi.product_id = p.product_id) AS total_qty_sold
	 FROM products p`,
	`SELECT * FROM orders WHERE DATE(order_ts) = CURRENT_DATE - INTERVAL '1 day'`,
	`SELECT product_id, name FROM products WHERE name ILIKE '%phone%'`,
	`SELECT p.product_id, p.name
	 FROM products p
	 WHERE p.product_id NOT IN (SELECT i.product_id FROM inventory i WHERE i.in_stock_qty > 0)`,
	`SELECT order_id FROM orders ORDER BY RANDOM() LIMIT 10`,
	`SELECT DISTINCT ON (customer_id) customer_id, order_id, order_ts
	 FROM orders ORDER BY customer_id, order_ts DESC`,
}

type jobSnapshot struct {
	ID                 string `json:"id"`
	Query              string `json:"query"`
	Status             string `json:"status"`
	CurrentStep        string `json:"current_step"`
	ProgressPercentage int    `json:"progress_percentage"`
	Suggestions        string `json:"suggestions"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Queries   []jobSnapshot `json:"queries"`
}

func main() {
	base := flag.String("api", "http://localhost:8080", "advisor API base URL")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	body, _ := json.Marshal(map[string]any{"queries": slowQueries})
	resp, err := client.Post(*base+"/api/v1/analysis/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("create session: http %d", resp.StatusCode)
	}
	var created sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	log.Printf("session %s created with %d jobs", created.SessionID, len(created.Queries))

	for {
		time.Sleep(time.Second)

		resp, err := client.Get(*base + "/api/v1/analysis/sessions/" + created.SessionID)
		if err != nil {
			log.Fatalf("poll: %v", err)
		}
		var status sessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			log.Fatalf("decode: %v", err)
		}
		resp.Body.Close()

		done := 0
		for _, j := range status.Queries {
			if j.Status == "completed" || j.Status == "error" {
				done++
				continue
			}
			log.Printf("  job %s: %3d%% %s (%s)", j.ID[:8], j.ProgressPercentage, j.Status, j.CurrentStep)
		}
		if done == len(status.Queries) {
			fmt.Println()
			for i, j := range status.Queries {
				fmt.Printf("=== Query %d (%s) ===\n%s\n\n", i+1, j.Status, j.Suggestions)
			}
			break
		}
	}

	req, _ := http.NewRequest(http.MethodDelete, *base+"/api/v1/analysis/sessions/"+created.SessionID, nil)
	if resp, err := client.Do(req); err == nil {
		resp.Body.Close()
	}
	log.Println("all done")
}
