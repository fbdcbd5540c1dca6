package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/splashxmoon/domufi-app/internal/config"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/openai"
	"github.com/splashxmoon/domufi-app/internal/service"
)

// SelfTestCmd returns the selftest command
func SelfTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the self-test suite once",
		Long:  "Run the full self-test question suite against the local engine and print the results",
		RunE:  runSelfTest,
	}

	cmd.Flags().Bool("focused", false, "Test only the current focus question instead of the whole suite")

	return cmd
}

func runSelfTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var embeddingClient embedding.EncoderClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
	}
	provider := embedding.NewProvider(embeddingClient, embedding.DefaultDimensions)

	store := vectorStore(cfg, provider)
	defer store.Close()

	if err := service.SeedIntentExamples(ctx, store); err != nil {
		return err
	}

	understanding := service.NewUnderstandingEngine(provider)
	collector := service.NewCuratedCollector()
	analyzer := service.NewSemanticAnalyzer(provider, store)
	memory := service.NewConversationMemory(cfg.StateDir)
	learner := service.NewBackgroundLearner(store, provider, understanding, collector, nil, cfg.StateDir)
	responder := service.NewResponder(nil)

	engine := service.NewEngine(analyzer, responder, understanding, collector, memory, learner, store)
	engine.SetReady(true)

	tester := service.NewSelfTester(service.NewEngineAnswerer(engine), store, learner, cfg.StateDir)

	focused, _ := cmd.Flags().GetBool("focused")
	result, err := tester.RunCycle(ctx, focused)
	if err != nil {
		return err
	}

	fmt.Printf("ran %d tests: %d passed, %d failed, %d/%d mastered\n",
		result.Total, result.Passed, result.Failed, result.Mastered, result.Suite)
	for _, outcome := range result.Details {
		status := "PASS"
		if !outcome.Passed {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s (%s, %d chars)\n", status, outcome.Question, outcome.Category, outcome.Length)
		for _, issue := range outcome.Issues {
			fmt.Printf("        - %s\n", issue)
		}
	}
	return nil
}
