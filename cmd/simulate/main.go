// Command simulate hammers one appointment slot with concurrent bookings and
// verifies that exactly one request wins. It drives the public API only, so
// it exercises the same path real clients race on.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

type simConfig struct {
	apiBaseURL string
	workers    int
	slot       time.Time
}

type attemptResult struct {
	status  int
	latency time.Duration
	body    string
}

func main() {
	var cfg simConfig
	var slotStr string

	flag.StringVar(&cfg.apiBaseURL, "api", "http://127.0.0.1:8080", "base URL of the api-server")
	flag.IntVar(&cfg.workers, "workers", 25, "number of concurrent booking attempts")
	flag.StringVar(&slotStr, "slot", "", "slot timestamp (RFC 3339), defaults to tomorrow 09:00 UTC")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if slotStr == "" {
		cfg.slot = time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(9 * time.Hour)
	} else {
		t, err := time.Parse(time.RFC3339, slotStr)
		if err != nil {
			log.Fatalf("invalid -slot: %v", err)
		}
		cfg.slot = t
	}

	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	log.Printf("signing up %d patients", cfg.workers)
	tokens := make([]string, cfg.workers)
	for i := range tokens {
		token, err := signupAndLogin(client, cfg.apiBaseURL)
		if err != nil {
			log.Fatalf("signup patient %d: %v", i, err)
		}
		tokens[i] = token
	}

	doctorID, err := pickDoctor(client, cfg.apiBaseURL, tokens[0])
	if err != nil {
		log.Fatalf("pick doctor: %v", err)
	}
	log.Printf("racing %d bookings for doctor %s at %s", cfg.workers, doctorID, cfg.slot.Format(time.RFC3339))

	results := make([]attemptResult, cfg.workers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = bookOnce(client, cfg.apiBaseURL, tokens[i], doctorID, cfg.slot)
		}(i)
	}

	close(start)
	wg.Wait()

	report(results)
}

func signupAndLogin(client *http.Client, base string) (string, error) {
	email := fmt.Sprintf("sim-%s@%s", uuid.NewString()[:8], gofakeit.DomainName())
	password := "sim-password-1"

	signupBody, _ := json.Marshal(map[string]string{
		"name":     gofakeit.Name(),
		"email":    email,
		"password": password,
	})
	resp, err := client.Post(base+"/auth/signup", "application/json", bytes.NewReader(signupBody))
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("signup returned %d", resp.StatusCode)
	}

	loginBody, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err = client.Post(base+"/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", err
	}
	return login.Token, nil
}

func pickDoctor(client *http.Client, base, token string) (uuid.UUID, error) {
	req, _ := http.NewRequest(http.MethodGet, base+"/users/doctors", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("list doctors returned %d", resp.StatusCode)
	}

	var doctors []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doctors); err != nil {
		return uuid.Nil, err
	}
	if len(doctors) == 0 {
		return uuid.Nil, fmt.Errorf("no doctors found, run cmd/seed first")
	}

	return doctors[gofakeit.Number(0, len(doctors)-1)].ID, nil
}

func bookOnce(client *http.Client, base, token string, doctorID uuid.UUID, slot time.Time) attemptResult {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":    doctorID.String(),
		"scheduled_at": slot.Format(time.RFC3339),
	})

	req, _ := http.NewRequest(http.MethodPost, base+"/appointments", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return attemptResult{status: 0, latency: latency, body: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return attemptResult{status: resp.StatusCode, latency: latency, body: string(data)}
}

func report(results []attemptResult) {
	var created, conflicts, other int
	latencies := make([]time.Duration, 0, len(results))

	for _, res := range results {
		latencies = append(latencies, res.latency)
		switch res.status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			other++
			log.Printf("unexpected response %d: %s", res.status, res.body)
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	fmt.Println()
	fmt.Printf("attempts:  %d\n", len(results))
	fmt.Printf("created:   %d\n", created)
	fmt.Printf("conflicts: %d\n", conflicts)
	fmt.Printf("other:     %d\n", other)
	if len(latencies) > 0 {
		p95Idx := len(latencies) * 95 / 100
		if p95Idx >= len(latencies) {
			p95Idx = len(latencies) - 1
		}
		fmt.Printf("latency:   avg=%s min=%s max=%s p95=%s\n",
			sum/time.Duration(len(latencies)),
			latencies[0],
			latencies[len(latencies)-1],
			latencies[p95Idx],
		)
	}

	if created == 1 && other == 0 {
		fmt.Println("result:    OK, exactly one booking won the slot")
	} else {
		fmt.Println("result:    FAILED, slot uniqueness was violated")
	}
}
