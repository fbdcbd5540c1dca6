//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/storage"
)

type chatReply struct {
	Answer         string   `json:"answer"`
	Confidence     float32  `json:"confidence"`
	Intent         string   `json:"intent"`
	Suggestions    []string `json:"suggestions"`
	DataSources    []string `json:"data_sources"`
	ReasoningSteps []string `json:"reasoning_steps"`
	ModelInfo      struct {
		Version string `json:"version"`
	} `json:"model_info"`
}

func (e *E2ETestEnv) chat(t *testing.T, message, userID string) chatReply {
	t.Helper()
	resp, err := e.Post("/chat", map[string]string{
		"message":    message,
		"user_id":    userID,
		"session_id": "e2e-session",
	})
	if err != nil {
		t.Fatalf("chat request failed: %v", err)
	}

	var reply chatReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		t.Fatalf("failed to parse chat reply: %v", err)
	}
	return reply
}

func TestConversationFlows(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("status reports ready with database", func(t *testing.T) {
		resp, err := env.Get("/status")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		var status struct {
			Ready    bool `json:"ready"`
			Database bool `json:"database"`
		}
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			t.Fatalf("failed to parse status: %v", err)
		}
		if !status.Ready || !status.Database {
			t.Fatalf("expected ready with database, got %+v", status)
		}
	})

	t.Run("greeting", func(t *testing.T) {
		reply := env.chat(t, "Hello!", "e2e-user")
		if reply.Intent != "greeting" {
			t.Fatalf("expected greeting intent, got %q", reply.Intent)
		}
		if !strings.Contains(reply.Answer, "domufi") {
			t.Fatalf("greeting answer missing platform name: %q", reply.Answer)
		}
	})

	t.Run("explanation cites research sources", func(t *testing.T) {
		reply := env.chat(t, "What is fractional ownership?", "e2e-user")
		if reply.Intent != "explanation" {
			t.Fatalf("expected explanation intent, got %q", reply.Intent)
		}
		if reply.Answer == "" || len(reply.ReasoningSteps) == 0 {
			t.Fatalf("expected substantive reply, got %+v", reply)
		}
		var cited bool
		for _, src := range reply.DataSources {
			if strings.HasPrefix(src, "curated:") {
				cited = true
			}
		}
		if !cited {
			t.Fatalf("expected a curated data source, got %v", reply.DataSources)
		}
	})

	t.Run("wallet answer uses seeded demo balance", func(t *testing.T) {
		reply := env.chat(t, "What's my wallet balance?", service.DemoUserID)
		if reply.Intent != "wallet_inquiry" {
			t.Fatalf("expected wallet_inquiry intent, got %q", reply.Intent)
		}
		if !strings.Contains(reply.Answer, "1,000") {
			t.Fatalf("expected seeded balance in answer: %q", reply.Answer)
		}
	})

	t.Run("portfolio answer lists seeded position", func(t *testing.T) {
		reply := env.chat(t, "Show my portfolio", service.DemoUserID)
		if reply.Intent != "portfolio_inquiry" {
			t.Fatalf("expected portfolio_inquiry intent, got %q", reply.Intent)
		}
		if !strings.Contains(reply.Answer, "Downtown Brooklyn Condo") {
			t.Fatalf("expected seeded position in answer: %q", reply.Answer)
		}
	})

	t.Run("property search finds seeded listings", func(t *testing.T) {
		reply := env.chat(t, "Show me properties under $500", "e2e-user")
		if reply.Intent != "property_search" {
			t.Fatalf("expected property_search intent, got %q", reply.Intent)
		}
		if !strings.Contains(reply.Answer, "Found") {
			t.Fatalf("expected listings in answer: %q", reply.Answer)
		}
	})

	t.Run("market analysis", func(t *testing.T) {
		reply := env.chat(t, "How is the real estate market in NYC?", "e2e-user")
		if reply.Intent != "market_analysis" {
			t.Fatalf("expected market_analysis intent, got %q", reply.Intent)
		}
		if len(reply.Answer) < 100 {
			t.Fatalf("expected a detailed market answer, got %q", reply.Answer)
		}
	})

	t.Run("model info version", func(t *testing.T) {
		reply := env.chat(t, "hello", "e2e-user")
		if reply.ModelInfo.Version != "3.0.0" {
			t.Fatalf("unexpected model version %q", reply.ModelInfo.Version)
		}
	})
}

func TestFeedbackLoop(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/feedback", map[string]interface{}{
		"user_id":       "e2e-user",
		"query":         "How is the NYC market?",
		"response":      "The NYC market is strong.",
		"intent":        "market_analysis",
		"feedback_type": "positive",
		"rating":        5,
	})
	if err != nil {
		t.Fatalf("feedback request failed: %v", err)
	}
	var created map[string]string
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("failed to parse feedback response: %v", err)
	}
	if created["status"] != "queued" {
		t.Fatalf("expected queued status, got %v", created)
	}

	// The drain worker runs every 50ms in the test server.
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := env.Get("/feedback/insights?intent=market_analysis")
		if err != nil {
			t.Fatalf("insights request failed: %v", err)
		}
		var insights struct {
			TotalPatterns int `json:"total_patterns"`
		}
		if err := json.Unmarshal(resp.Data, &insights); err != nil {
			t.Fatalf("failed to parse insights: %v", err)
		}
		if insights.TotalPatterns >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("feedback was never processed, insights: %+v", insights)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestLearningEndpoints(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/training/learn", map[string]string{
		"topic":    "fractional ownership basics",
		"category": "investor_education",
	})
	if err != nil {
		t.Fatalf("learn request failed: %v", err)
	}
	var learned struct {
		ItemsStored int `json:"items_stored"`
	}
	if err := json.Unmarshal(resp.Data, &learned); err != nil {
		t.Fatalf("failed to parse learn response: %v", err)
	}
	if learned.ItemsStored == 0 {
		t.Fatal("expected the topic to store knowledge items")
	}

	topicsResp, err := env.Get("/training/topics")
	if err != nil {
		t.Fatalf("topics request failed: %v", err)
	}
	var topics map[string][]string
	if err := json.Unmarshal(topicsResp.Data, &topics); err != nil {
		t.Fatalf("failed to parse topics: %v", err)
	}
	if len(topics["investor_education"]) == 0 {
		t.Fatalf("expected the learned topic to be listed, got %v", topics)
	}

	if _, err := env.Get("/self-learning/status"); err != nil {
		t.Fatalf("self-learning status failed: %v", err)
	}
	if _, err := env.Get("/self-learning/progress"); err != nil {
		t.Fatalf("self-learning progress failed: %v", err)
	}
}

func TestSnapshotBackup(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.chat(t, "Hello!", "e2e-user")
	env.Memory.Flush()

	backup := storage.NewSnapshotBackup(env.S3Client, env.StateDir, "state")
	if err := backup.ProcessJobs(env.Ctx); err != nil {
		t.Fatalf("snapshot backup failed: %v", err)
	}

	meta, err := env.S3Client.HeadObject(env.Ctx, "state/knowledge.json")
	if err != nil {
		t.Fatalf("expected knowledge snapshot in object storage: %v", err)
	}
	if meta.ContentLength == 0 {
		t.Fatal("expected a non-empty snapshot object")
	}

	data, err := env.S3Client.GetObject(env.Ctx, "state/knowledge.json")
	if err != nil {
		t.Fatalf("failed to download snapshot: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("snapshot object is not valid JSON")
	}
}
