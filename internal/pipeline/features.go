package pipeline

import "github.com/xela07ax/agisfl-core/internal/domain"

// FeatureVector — фиксированный набор признаков, извлекаемых из сырого
// сетевого сэмпла. Дальше по конвейеру вектор не меняется.
type FeatureVector struct {
	Port             int
	SourceReputation float64 // 0-1, ниже — хуже
	Protocol         string
	Geolocation      string
	Frequency        float64
	PacketSize       int
}

// ReputationSource — что конвейеру нужно от реестра threat intelligence.
// Реализуется intel.Feed.
type ReputationSource interface {
	IsKnownBad(ip string) bool
}

var geoTags = []string{"US", "CN", "RU", "KP", "IR"}

type Extractor struct {
	intel ReputationSource
	noise Noise
}

func NewExtractor(intel ReputationSource, noise Noise) *Extractor {
	return &Extractor{intel: intel, noise: noise}
}

// Extract строит вектор признаков. Оценка репутации источника —
// эвристика: стохастическая база, придавленная в пол для адресов
// из черного списка фида.
func (e *Extractor) Extract(s domain.RawSample) FeatureVector {
	reputation := e.noise.Float64()
	if e.intel != nil && e.intel.IsKnownBad(s.Source) && reputation > 0.05 {
		reputation = 0.05
	}

	return FeatureVector{
		Port:             s.Port,
		SourceReputation: reputation,
		Protocol:         s.Protocol,
		Geolocation:      geoTags[e.noise.IntN(len(geoTags))],
		Frequency:        s.Frequency,
		PacketSize:       64 + e.noise.IntN(1500),
	}
}
