package metrics

import "github.com/akosterin/docqa/internal/core/domain"

// PipelineRecorder exposes the pipeline collectors behind the core's metrics
// port, pinning the service label once at wiring time.
type PipelineRecorder struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) Pipeline(service string) *PipelineRecorder {
	return &PipelineRecorder{metrics: m, service: service}
}

func (p *PipelineRecorder) RetrievedResults(tier domain.Tier, count int) {
	p.metrics.RecordRetrievedResults(p.service, string(tier), count)
}

func (p *PipelineRecorder) ExpansionFallback() {
	p.metrics.RecordExpansionFallback(p.service)
}

func (p *PipelineRecorder) RerankFallback(tier domain.Tier) {
	p.metrics.RecordRerankFallback(p.service, string(tier))
}

func (p *PipelineRecorder) ModelFallbackDepth(depth int) {
	p.metrics.RecordModelFallbackDepth(p.service, depth)
}

func (p *PipelineRecorder) TokenUsage(model string, promptTokens, outputTokens int) {
	p.metrics.RecordTokenUsage(p.service, model, promptTokens, outputTokens)
}
