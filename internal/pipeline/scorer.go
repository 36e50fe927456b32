package pipeline

import "github.com/xela07ax/agisfl-core/internal/domain"

// Веса правил скоринга. Подобраны так, чтобы порт из черного списка
// вместе с плохой репутацией гарантированно пробивали порог флага (0.6)
// даже при нулевом стохастическом вкладе.
const (
	weightRiskyPort  = 0.3
	weightReputation = 0.4
	weightGeo        = 0.2
	weightStochastic = 0.5 // множитель случайного вклада «ML-модели»

	lowReputation  = 0.3 // ниже — вклад в скор
	c2Reputation   = 0.2 // ниже — классифицируем как malware C2
	ddosFrequency  = 80.0
)

var riskyPorts = map[int]struct{}{
	22: {}, 23: {}, 135: {}, 139: {}, 445: {}, 1433: {}, 3389: {},
}

var riskyGeos = map[string]struct{}{
	"CN": {}, "RU": {}, "KP": {}, "IR": {},
}

type Scorer struct {
	noise Noise
}

func NewScorer(noise Noise) *Scorer {
	return &Scorer{noise: noise}
}

// Score — взвешенная сумма правил плюс ограниченный стохастический
// вклад, с отсечкой в [0,1].
func (s *Scorer) Score(f FeatureVector) float64 {
	score := 0.0

	if _, risky := riskyPorts[f.Port]; risky {
		score += weightRiskyPort
	}
	if f.SourceReputation < lowReputation {
		score += weightReputation
	}
	if _, risky := riskyGeos[f.Geolocation]; risky {
		score += weightGeo
	}

	score += s.noise.Float64() * weightStochastic

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// SeverityFor — пороговая шкала риска по численному скору.
func SeverityFor(score float64) domain.Severity {
	switch {
	case score > 0.9:
		return domain.SeverityCritical
	case score > 0.7:
		return domain.SeverityHigh
	case score > 0.4:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Classify — детерминированное отображение доминирующего признака
// в тип угрозы. Намеренно не зависит от численного скора: тип отвечает
// на вопрос «что это», скор — «насколько это опасно».
func Classify(f FeatureVector) (domain.ThreatType, string) {
	switch {
	case f.Port == 22:
		return domain.ThreatIntrusion, "SSH brute force attack detected from suspicious IP"
	case f.Port == 3389:
		return domain.ThreatIntrusion, "RDP connection attempt from unauthorized source"
	case isRiskyPort(f.Port):
		return domain.ThreatIntrusion, "Connection attempt to restricted service port"
	case f.Frequency > ddosFrequency:
		return domain.ThreatDDoS, "Distributed Denial of Service attack in progress"
	case f.SourceReputation < c2Reputation:
		return domain.ThreatMalware, "Communication with known malware command & control server"
	case isRiskyGeo(f.Geolocation):
		return domain.ThreatSuspicious, "Traffic from high-risk geolocation requires investigation"
	default:
		return domain.ThreatAnomaly, "Unusual network behavior pattern detected"
	}
}

func isRiskyPort(port int) bool {
	_, ok := riskyPorts[port]
	return ok
}

func isRiskyGeo(geo string) bool {
	_, ok := riskyGeos[geo]
	return ok
}
