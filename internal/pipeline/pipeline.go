package pipeline

/*
Конвейер скоринга: Sampled -> Scored -> {Benign | Flagged -> Mitigating -> Mitigated}.

Сырой сетевой сэмпл проходит валидацию, извлечение признаков, скоринг и
классификацию. Скор ниже порога — сэмпл выбрасывается без создания Threat
(иначе история зарастает шумом). Угрозы high/critical уходят в
авто-митигацию с ограниченной случайной задержкой; medium/low ждут
действий оператора через REST.
*/

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

var (
	threatLocations = []string{"External", "DMZ", "Internal", "Cloud", "Remote"}
	attackVectors   = []string{"Network", "Email", "Web", "USB", "Social Engineering"}
)

type Pipeline struct {
	store     *store.Store
	extractor *Extractor
	scorer    *Scorer
	mitigator *Mitigator
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	noise     Noise

	flagThreshold float64
	minDelay      time.Duration
	maxDelay      time.Duration

	wg sync.WaitGroup // открытые авто-митигации
}

func New(
	s *store.Store,
	intel ReputationSource,
	mitigator *Mitigator,
	cfg infra.PipelineConfig,
	noise Noise,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *Pipeline {
	if noise == nil {
		noise = SystemNoise{}
	}
	return &Pipeline{
		store:         s,
		extractor:     NewExtractor(intel, noise),
		scorer:        NewScorer(noise),
		mitigator:     mitigator,
		logger:        logger.Named("pipeline"),
		metrics:       metrics,
		noise:         noise,
		flagThreshold: cfg.FlagThreshold,
		minDelay:      cfg.MitigationMinDelay,
		maxDelay:      cfg.MitigationMaxDelay,
	}
}

// Process прогоняет один сырой сэмпл через конвейер.
// Любой исход здесь нефатален: битый сэмпл — logged discard,
// шум — счетчик benign, угроза — запись в стор.
func (p *Pipeline) Process(ctx context.Context, raw domain.RawSample) {
	if err := raw.Validate(); err != nil {
		p.logger.Warn("malformed raw sample dropped", zap.Error(err))
		return
	}

	features := p.extractor.Extract(raw)
	score := p.scorer.Score(features)

	if score <= p.flagThreshold {
		p.store.CountBenign()
		p.metrics.SamplesBenign.Inc()
		return
	}

	threatType, description := Classify(features)
	severity := SeverityFor(score)

	threat := domain.Threat{
		ID:           uuid.New().String(),
		Type:         threatType,
		Severity:     severity,
		Source:       raw.Source,
		Target:       raw.Target,
		Description:  description,
		Confidence:   math.Round(score * 100),
		CreatedAt:    time.Now(),
		Location:     threatLocations[p.noise.IntN(len(threatLocations))],
		AttackVector: attackVectors[p.noise.IntN(len(attackVectors))],
	}

	p.store.AddThreat(threat)
	p.metrics.ThreatsDetected.WithLabelValues(string(severity), string(threatType)).Inc()
	p.logger.Warn("threat flagged",
		zap.String("id", threat.ID),
		zap.String("type", string(threatType)),
		zap.String("severity", string(severity)),
		zap.String("source", raw.Source),
		zap.Float64("score", score),
	)

	if severity == domain.SeverityCritical {
		p.store.AddAlert(domain.Alert{
			ID:        uuid.New().String(),
			Type:      domain.AlertCritical,
			Title:     "Critical Threat Detected",
			Message:   fmt.Sprintf("%s from %s targeting %s", description, raw.Source, raw.Target),
			Source:    "threat-pipeline",
			Timestamp: time.Now(),
		})
	}

	// Flagged -> Mitigating только для high/critical; остальные ждут оператора
	if severity.Rank() >= domain.SeverityHigh.Rank() {
		p.wg.Add(1)
		go p.autoMitigate(ctx, threat)
	}
}

// autoMitigate моделирует асинхронную ремедиацию: ограниченная случайная
// задержка, затем вызов респондера через слой надежности.
func (p *Pipeline) autoMitigate(ctx context.Context, t domain.Threat) {
	defer p.wg.Done()

	delay := p.minDelay
	if p.maxDelay > p.minDelay {
		delay += time.Duration(p.noise.Float64() * float64(p.maxDelay-p.minDelay))
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := p.mitigator.Mitigate(ctx, t); err != nil {
		p.logger.Error("auto-mitigation failed", zap.String("id", t.ID), zap.Error(err))
		return
	}

	if p.store.MarkMitigated(t.ID) {
		p.metrics.ThreatsMitigated.Inc()
		p.logger.Info("threat auto-mitigated", zap.String("id", t.ID))
	}
}

// Wait блокируется до завершения всех открытых митигаций.
// Используется при graceful shutdown: начатый переход должен доехать.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
