package service

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

const (
	priorKnowledgeTopK      = 10
	priorKnowledgeThreshold = 0.5
	replyConfidenceCap      = 0.95

	engineAnalyzerName  = "semantic-vector"
	engineGeneratorName = "knowledge-synthesis"
	engineVersion       = "3.0.0"
)

// Engine drives one chat turn end to end: semantic analysis, knowledge
// retrieval, optional research and synthesis, response generation, and the
// learning hooks that feed the background loops.
type Engine struct {
	analyzer      *SemanticAnalyzer
	responder     *Responder
	understanding *UnderstandingEngine
	collector     ResearchCollector
	memory        *ConversationMemory
	learner       *BackgroundLearner
	store         AnalyzerStore

	ready atomic.Bool
}

// NewEngine wires the chat pipeline. learner and collector may be nil when
// the background loops are disabled.
func NewEngine(
	analyzer *SemanticAnalyzer,
	responder *Responder,
	understanding *UnderstandingEngine,
	collector ResearchCollector,
	memory *ConversationMemory,
	learner *BackgroundLearner,
	store AnalyzerStore,
) *Engine {
	return &Engine{
		analyzer:      analyzer,
		responder:     responder,
		understanding: understanding,
		collector:     collector,
		memory:        memory,
		learner:       learner,
		store:         store,
	}
}

// SetReady marks the engine as able to serve traffic.
func (e *Engine) SetReady(ready bool) { e.ready.Store(ready) }

// Ready reports whether the engine accepts chat requests.
func (e *Engine) Ready() bool { return e.ready.Load() }

// ModelInfo describes the pipeline components for clients.
func (e *Engine) ModelInfo() domain.ModelInfo {
	return domain.ModelInfo{
		Analyzer:  engineAnalyzerName,
		Generator: engineGeneratorName,
		Version:   engineVersion,
	}
}

// ProcessMessage runs the full pipeline for one user message.
func (e *Engine) ProcessMessage(ctx context.Context, q domain.ChatQuery) (domain.ChatReply, error) {
	if !e.Ready() {
		return domain.ChatReply{}, domain.ErrEngineNotReady
	}
	message := strings.TrimSpace(q.Message)
	if message == "" {
		return domain.ChatReply{}, domain.ErrEmptyMessage
	}

	var steps []string
	var sources []string

	history := q.History
	if len(history) == 0 && e.memory != nil && q.SessionID != "" {
		history = e.memory.History(q.SessionID)
	}

	analysis := e.analyzer.Analyze(ctx, message, history)
	steps = append(steps, "semantic_understanding: intent="+string(analysis.Intent))

	if err := e.analyzer.LearnPattern(ctx, message, analysis.Intent, analysis.Entities); err != nil {
		log.Printf("engine: pattern learn failed: %v", err)
	}

	prior := e.priorKnowledge(ctx, message)
	if len(prior) > 0 {
		steps = append(steps, "knowledge_retrieval: items="+strconv.Itoa(len(prior)))
		sources = append(sources, "knowledge_base")
	}

	und := e.research(ctx, analysis, message, prior, &steps, &sources)

	reply := e.responder.Generate(ctx, analysis, und, prior, q.UserID)
	steps = append(steps, "response_generation: length="+strconv.Itoa(len(reply.Answer)))

	if e.learner != nil {
		e.learner.NoteInteraction(analysis, reply.Confidence)
	}
	if e.memory != nil && q.SessionID != "" {
		e.memory.AddTurn(q.SessionID, string(domain.RoleUser), message, nil)
		e.memory.AddTurn(q.SessionID, string(domain.RoleAssistant), reply.Answer, nil)
	}
	if e.memory != nil {
		e.memory.LearnInteraction(q.UserID, analysis.Intent, analysis.Entities)
	}

	confidence := reply.Confidence
	if confidence > replyConfidenceCap {
		confidence = replyConfidenceCap
	}

	return domain.ChatReply{
		Answer:         reply.Answer,
		Confidence:     confidence,
		Intent:         analysis.Intent,
		Entities:       analysis.Entities,
		Suggestions:    reply.Suggestions,
		Actions:        reply.Actions,
		DataSources:    sources,
		ReasoningSteps: steps,
		Timestamp:      time.Now().UTC(),
		ModelInfo:      e.ModelInfo(),
	}, nil
}

// priorKnowledge pulls the stored items most similar to the message.
func (e *Engine) priorKnowledge(ctx context.Context, message string) []domain.SearchResult {
	if e.store == nil {
		return nil
	}
	results, err := e.store.Search(ctx, message, vectorstore.SearchOptions{
		TopK:      priorKnowledgeTopK,
		Threshold: priorKnowledgeThreshold,
	})
	if err != nil {
		log.Printf("engine: prior knowledge search failed: %v", err)
		return nil
	}
	return results
}

// research runs the collector and synthesis for intents that benefit from
// fresh topical content. Failures degrade to generation without it.
func (e *Engine) research(
	ctx context.Context,
	analysis Analysis,
	message string,
	prior []domain.SearchResult,
	steps *[]string,
	sources *[]string,
) *domain.Understanding {
	if e.collector == nil || e.understanding == nil {
		return nil
	}

	var topic string
	switch analysis.Intent {
	case domain.IntentExplanation:
		topic = analysis.Entities.Topic
		if topic == "" {
			topic = message
		}
	case domain.IntentMarketAnalysis:
		if analysis.Entities.City != "" {
			topic = analysis.Entities.City + " real estate market"
		}
	default:
		return nil
	}
	if topic == "" {
		return nil
	}

	report, err := e.collector.Collect(ctx, topic)
	if err != nil {
		log.Printf("engine: research for %q failed: %v", topic, err)
		return nil
	}
	und := e.understanding.Understand(ctx, report, message, prior)
	*steps = append(*steps, "information_understanding: insights="+strconv.Itoa(len(und.Insights)))
	for _, src := range report.Sources {
		*sources = appendUnique(*sources, src)
	}
	return &und
}

// EngineAnswerer exposes the engine as a plain question answerer for the
// self-test loop.
type EngineAnswerer struct {
	engine *Engine
}

func NewEngineAnswerer(engine *Engine) *EngineAnswerer {
	return &EngineAnswerer{engine: engine}
}

func (a *EngineAnswerer) Answer(ctx context.Context, question string) (string, error) {
	reply, err := a.engine.ProcessMessage(ctx, domain.ChatQuery{
		Message: question,
		UserID:  "self_test",
	})
	if err != nil {
		return "", err
	}
	return reply.Answer, nil
}
