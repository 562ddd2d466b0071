// Command seed loads a demo clinic (providers, their services and blocked
// times, and clients) into a running API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

// SeedFile is the JSON layout read from disk.
type SeedFile struct {
	Providers []ProviderSeed                `json:"providers"`
	Clients   []clients.CreateClientRequest `json:"clients"`
}

// ProviderSeed is a provider with the services and blocked times created
// under it.
type ProviderSeed struct {
	providers.CreateProviderRequest
	Services []catalog.CreateServiceRequest           `json:"services"`
	Blocks   []blockedtimes.CreateBlockedTimeRequest `json:"blocks"`
}

// Summary counts what a run created.
type Summary struct {
	Providers    int
	Services     int
	BlockedTimes int
	Clients      int
	Failures     int
}

type seeder struct {
	baseURL string
	client  *http.Client
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: seed <clinic-file.json>")
		fmt.Println("Example: API_URL=http://localhost:8080 seed cmd/seed/testdata/sample-clinic.json")
		os.Exit(1)
	}

	apiURL := strings.TrimSpace(os.Getenv("API_URL"))
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}
	var file SeedFile
	if err := json.Unmarshal(data, &file); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🌱 Seeding clinic\n")
	fmt.Printf("============================\n")
	fmt.Printf("API URL: %s\n\n", apiURL)

	s := &seeder{baseURL: strings.TrimRight(apiURL, "/"), client: &http.Client{Timeout: 30 * time.Second}, out: os.Stdout}
	summary := s.run(context.Background(), &file)

	fmt.Printf("\n✅ Seeding complete: %d providers, %d services, %d blocked times, %d clients\n",
		summary.Providers, summary.Services, summary.BlockedTimes, summary.Clients)
	if summary.Failures > 0 {
		fmt.Printf("❌ %d request(s) failed\n", summary.Failures)
		os.Exit(1)
	}
}

// run creates every entity in file, continuing past individual failures.
func (s *seeder) run(ctx context.Context, file *SeedFile) Summary {
	var sum Summary
	for _, p := range file.Providers {
		var created providers.Provider
		if err := s.post(ctx, "/api/providers", p.CreateProviderRequest, &created); err != nil {
			fmt.Fprintf(s.out, "❌ provider %s: %v\n", p.Name, err)
			sum.Failures++
			continue
		}
		sum.Providers++
		fmt.Fprintf(s.out, "👩‍⚕️ %s (%s)\n", created.Name, created.ID)

		for _, svc := range p.Services {
			svc.ProviderID = created.ID
			if err := s.post(ctx, "/api/services", svc, nil); err != nil {
				fmt.Fprintf(s.out, "   ❌ service %s: %v\n", svc.Name, err)
				sum.Failures++
				continue
			}
			sum.Services++
		}
		for _, block := range p.Blocks {
			block.ProviderID = created.ID
			if err := s.post(ctx, "/api/blocked-times", block, nil); err != nil {
				fmt.Fprintf(s.out, "   ❌ blocked time %s: %v\n", block.StartTime, err)
				sum.Failures++
				continue
			}
			sum.BlockedTimes++
		}
	}

	for _, c := range file.Clients {
		if err := s.post(ctx, "/api/clients", c, nil); err != nil {
			fmt.Fprintf(s.out, "❌ client %s: %v\n", c.Name, err)
			sum.Failures++
			continue
		}
		sum.Clients++
	}
	return sum
}

func (s *seeder) post(ctx context.Context, path string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(respBody, dst)
}
