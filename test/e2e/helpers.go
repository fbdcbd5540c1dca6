//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/api/handlers"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/jobs"
	"github.com/splashxmoon/domufi-app/internal/repository"
	"github.com/splashxmoon/domufi-app/internal/server"
	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/storage"
	"github.com/splashxmoon/domufi-app/internal/testutil"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	StateDir     string
	Memory       *service.ConversationMemory
	HTTPClient   *http.Client
	workers      []*jobs.Worker
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-snapshots",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	stateDir, err := os.MkdirTemp("", "domufi-e2e-*")
	if err != nil {
		t.Fatalf("failed to create state dir: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		StateDir:   stateDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.ServerURL, env.ServerCloser = env.startServer(port)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	for _, w := range e.workers {
		w.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.StateDir != "" {
		os.RemoveAll(e.StateDir)
	}
}

// startServer wires the full service stack against the test containers
// and serves it on the given port.
func (e *E2ETestEnv) startServer(port int) (string, func()) {
	t := e.T
	ctx := e.Ctx
	pool := e.Pool

	provider := embedding.NewProvider(nil, embedding.DefaultDimensions)
	store := vectorstore.NewLinearStore(provider, filepath.Join(e.StateDir, "vector_store"))

	if err := service.SeedIntentExamples(ctx, store); err != nil {
		t.Fatalf("failed to seed intent examples: %v", err)
	}

	platform := service.NewPlatformDataService(
		repository.NewPropertyRepository(pool),
		repository.NewPortfolioRepository(pool),
		repository.NewInvestmentRepository(pool),
		repository.NewWalletRepository(pool),
		repository.NewMarketDataRepository(pool),
	)
	archiver := repository.NewInsightRepository(pool)

	if _, err := service.SeedDemoData(ctx, repository.NewTxRunner(pool), repository.NewPropertyRepository(pool)); err != nil {
		t.Fatalf("failed to seed demo data: %v", err)
	}

	understanding := service.NewUnderstandingEngine(provider)
	collector := service.NewCuratedCollector()
	analyzer := service.NewSemanticAnalyzer(provider, store)
	memory := service.NewConversationMemory(e.StateDir)
	learner := service.NewBackgroundLearner(store, provider, understanding, collector, archiver, e.StateDir)
	tuner := service.NewFeedbackTuner(store, e.StateDir)

	engine := service.NewEngine(analyzer, service.NewResponder(platform), understanding, collector, memory, learner, store)
	tester := service.NewSelfTester(service.NewEngineAnswerer(engine), store, learner, e.StateDir)
	engine.SetReady(true)

	e.Memory = memory

	feedbackWorker := jobs.NewWorker(tuner.Job(), 50*time.Millisecond)
	go feedbackWorker.Start(ctx)
	e.workers = append(e.workers, feedbackWorker)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:     handlers.NewChatHandler(engine),
		FeedbackHandler: handlers.NewFeedbackHandler(tuner),
		LearningHandler: handlers.NewLearningHandler(tester, learner),
		StatusHandler:   handlers.NewStatusHandler(engine, store, tuner, true, false),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
