package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
	pollInterval   = 2 * time.Second
)

var (
	apiBase     string
	token       string
	smokeEmail  string
	client      = &http.Client{Timeout: 30 * time.Second}
	pollTimeout = 3 * time.Minute
	createdIDs  = make(map[string]string)
)

func main() {
	fmt.Println("=== FitGenius E2E Smoke Test ===")
	fmt.Println()

	apiBase = strings.TrimRight(getEnv("API_BASE_URL", defaultAPIBase), "/")
	token = getEnv("SMOKE_TOKEN", "")
	smokeEmail = getEnv("SMOKE_EMAIL", "")
	if d, err := time.ParseDuration(getEnv("SMOKE_POLL_TIMEOUT", "")); err == nil && d > 0 {
		pollTimeout = d
	}

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Printf("Email: %s\n", maskString(smokeEmail))
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Sign In", testSignIn},
		{"Patch Profile", testPatchProfile},
		{"Generate Plan", testGeneratePlan},
		{"Wait For Plan", testWaitForPlan},
		{"Today", testToday},
		{"Download Workbook", testDownloadWorkbook},
		{"Store Export", testCreateExport},
		{"List Exports", testListExports},
		{"Download Export", testDownloadExport},
		{"Delete Export", testDeleteExport},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	resp, err := do(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return expectStatus(resp, http.StatusOK)
}

// testSignIn registers SMOKE_EMAIL (or logs in when it already exists). Skipped when a
// token is given or no email is configured.
func testSignIn() error {
	if token != "" || smokeEmail == "" {
		return nil
	}

	resp, err := do(http.MethodPost, "/v1/auth/register", map[string]string{"name": "Smoke Test", "email": smokeEmail})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		resp.Body.Close()
		resp, err = do(http.MethodPost, "/v1/auth/login", map[string]string{"email": smokeEmail})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	token = result.AccessToken
	return nil
}

func testPatchProfile() error {
	payload := map[string]interface{}{
		"gender":             "Mujer",
		"last_period_date":   time.Now().AddDate(0, 0, -5).Format("2006-01-02"),
		"age":                29,
		"weight_kg":          62.5,
		"height_cm":          168,
		"goal":               "Mejorar Resistencia",
		"activity_level":     "Moderado",
		"training_days":      4,
		"training_location":  "Gimnasio",
		"favorite_exercises": []string{"Correr", "Yoga"},
		"allergies":          "frutos secos",
	}

	resp, err := do(http.MethodPatch, "/v1/profile", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var result struct {
		Complete bool `json:"complete"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if !result.Complete {
		return fmt.Errorf("profile should be complete after patch")
	}
	return nil
}

func testGeneratePlan() error {
	resp, err := do(http.MethodPost, "/v1/plans/generate", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return expectStatus(resp, http.StatusAccepted)
}

func testWaitForPlan() error {
	deadline := time.Now().Add(pollTimeout)
	for time.Now().Before(deadline) {
		resp, err := do(http.MethodGet, "/v1/plans/current", nil)
		if err != nil {
			return err
		}

		var view struct {
			State string `json:"state"`
			Error *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		err = json.NewDecoder(resp.Body).Decode(&view)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}

		switch view.State {
		case "ready":
			return nil
		case "failed":
			if view.Error != nil {
				return fmt.Errorf("generation failed: %s (%s)", view.Error.Message, view.Error.Code)
			}
			return fmt.Errorf("generation failed")
		case "idle":
			return fmt.Errorf("plan state went back to idle")
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("plan not ready after %s", pollTimeout)
}

func testToday() error {
	resp, err := do(http.MethodGet, "/v1/plans/today", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var today struct {
		Weekday string `json:"weekday"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&today); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if today.Weekday == "" {
		return fmt.Errorf("missing weekday")
	}
	return nil
}

func testDownloadWorkbook() error {
	resp, err := do(http.MethodGet, "/v1/plans/export.xlsx", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Prose plans have nothing structured to export.
	if resp.StatusCode == http.StatusConflict {
		createdIDs["skip_exports"] = "1"
		return nil
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	return expectWorkbook(resp.Body)
}

func testCreateExport() error {
	if createdIDs["skip_exports"] != "" {
		return nil
	}

	resp, err := do(http.MethodPost, "/v1/exports", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return err
	}

	var result struct {
		ID          string `json:"id"`
		DownloadURL string `json:"download_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if result.ID == "" || result.DownloadURL == "" {
		return fmt.Errorf("incomplete export response")
	}
	createdIDs["export"] = result.ID
	return nil
}

func testListExports() error {
	if createdIDs["skip_exports"] != "" {
		return nil
	}

	resp, err := do(http.MethodGet, "/v1/exports", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var result struct {
		Exports []struct {
			ID string `json:"id"`
		} `json:"exports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	for _, e := range result.Exports {
		if e.ID == createdIDs["export"] {
			return nil
		}
	}
	return fmt.Errorf("export %s not listed", createdIDs["export"])
}

func testDownloadExport() error {
	if createdIDs["skip_exports"] != "" {
		return nil
	}

	// Follows the redirect to object storage in S3 mode.
	resp, err := do(http.MethodGet, "/v1/exports/"+createdIDs["export"]+"/download", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	return expectWorkbook(resp.Body)
}

func testDeleteExport() error {
	if createdIDs["skip_exports"] != "" {
		return nil
	}

	resp, err := do(http.MethodDelete, "/v1/exports/"+createdIDs["export"], nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return expectStatus(resp, http.StatusNoContent)
}

// Helper functions

func do(method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)
	return client.Do(req)
}

func expectStatus(resp *http.Response, want int) error {
	if resp.StatusCode != want {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
}

// expectWorkbook checks the zip signature every .xlsx starts with.
func expectWorkbook(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) < 4 || !bytes.Equal(data[:4], []byte("PK\x03\x04")) {
		return fmt.Errorf("response is not an xlsx file (%d bytes)", len(data))
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
