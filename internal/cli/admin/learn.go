package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/splashxmoon/domufi-app/internal/config"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/openai"
	"github.com/splashxmoon/domufi-app/internal/service"
)

// LearnCmd returns the learn command
func LearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn <topic>",
		Short: "Learn a single topic into the vector memory",
		Long:  "Research a topic through the collector, synthesize it, and store the results in the local vector memory",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLearn,
	}

	cmd.Flags().String("category", "manual", "Category to file the learned items under")

	return cmd
}

func runLearn(cmd *cobra.Command, args []string) error {
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

	understanding := service.NewUnderstandingEngine(provider)
	collector := service.NewCuratedCollector()
	learner := service.NewBackgroundLearner(store, provider, understanding, collector, nil, cfg.StateDir)

	topic := strings.Join(args, " ")
	category, _ := cmd.Flags().GetString("category")

	stored, err := learner.LearnTopic(ctx, topic, category, false)
	if err != nil {
		return err
	}

	fmt.Printf("learned %q (%s): %d items stored, %d total in memory\n", topic, category, stored, store.Len())
	return nil
}
