package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PrintJobState is the print service's view of a submitted job.
type PrintJobState string

const (
	PrintStateReceived PrintJobState = "received"
	PrintStatePrinting PrintJobState = "printing"
	PrintStateShipped  PrintJobState = "shipped"
	PrintStateRejected PrintJobState = "rejected"
)

// Complete reports whether the job has left the print queue.
func (s PrintJobState) Complete() bool {
	return s == PrintStateShipped || s == PrintStateRejected
}

// PrintSubmission describes one book sent to the print service.
type PrintSubmission struct {
	StoryID    string
	Title      string
	PDFPath    string
	PageCount  int
	ICCProfile string
}

// PrintJobStatus is the result of polling a submitted job.
type PrintJobStatus struct {
	JobID   string        `json:"job_id"`
	State   PrintJobState `json:"state"`
	Message string        `json:"message,omitempty"`
}

// PrintClient talks to the external print service.
type PrintClient interface {
	Submit(ctx context.Context, sub PrintSubmission) (string, error)
	Status(ctx context.Context, jobID string) (PrintJobStatus, error)
}

// HTTPPrintClient submits jobs over the print service's REST API: a
// multipart upload for submission, JSON for status polling.
type HTTPPrintClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPPrintClient creates a client for the given service endpoint.
func NewHTTPPrintClient(baseURL, apiKey string) *HTTPPrintClient {
	return &HTTPPrintClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Submit uploads the PDF with its job metadata and returns the print
// service's job ID.
func (c *HTTPPrintClient) Submit(ctx context.Context, sub PrintSubmission) (string, error) {
	pdf, err := os.Open(sub.PDFPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF for submission: %w", err)
	}
	defer pdf.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	meta := map[string]any{
		"story_id":    sub.StoryID,
		"title":       sub.Title,
		"page_count":  sub.PageCount,
		"icc_profile": sub.ICCProfile,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(metaJSON)); err != nil {
		return "", fmt.Errorf("failed to write metadata field: %w", err)
	}

	part, err := mw.CreateFormFile("file", filepath.Base(sub.PDFPath))
	if err != nil {
		return "", fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return "", fmt.Errorf("failed to copy PDF into request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("print submit request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("print service error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("print service returned no job ID")
	}
	return out.JobID, nil
}

// Status polls the print service for job progress.
func (c *HTTPPrintClient) Status(ctx context.Context, jobID string) (PrintJobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return PrintJobStatus{}, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PrintJobStatus{}, fmt.Errorf("print status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return PrintJobStatus{}, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return PrintJobStatus{}, fmt.Errorf("print service error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var status PrintJobStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return PrintJobStatus{}, fmt.Errorf("failed to parse status response: %w", err)
	}
	return status, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MockPrintClient simulates the print service for local runs and
// tests. Jobs progress to shipped after StatusPollsToShip polls.
type MockPrintClient struct {
	mu                sync.Mutex
	jobs              map[string]int
	nextID            int
	SubmitErr         error
	StatusPollsToShip int
}

// NewMockPrintClient creates a simulator that ships jobs after two
// status polls.
func NewMockPrintClient() *MockPrintClient {
	return &MockPrintClient{
		jobs:              make(map[string]int),
		StatusPollsToShip: 2,
	}
}

func (m *MockPrintClient) Submit(_ context.Context, sub PrintSubmission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	if _, err := os.Stat(sub.PDFPath); err != nil {
		return "", fmt.Errorf("failed to open PDF for submission: %w", err)
	}
	m.nextID++
	id := fmt.Sprintf("mock-print-%d", m.nextID)
	m.jobs[id] = 0
	return id, nil
}

func (m *MockPrintClient) Status(_ context.Context, jobID string) (PrintJobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	polls, ok := m.jobs[jobID]
	if !ok {
		return PrintJobStatus{}, fmt.Errorf("unknown print job %q", jobID)
	}
	m.jobs[jobID] = polls + 1
	state := PrintStatePrinting
	if polls+1 >= m.StatusPollsToShip {
		state = PrintStateShipped
	}
	return PrintJobStatus{JobID: jobID, State: state}, nil
}

var (
	_ PrintClient = (*HTTPPrintClient)(nil)
	_ PrintClient = (*MockPrintClient)(nil)
)
