package pipeline

import "math/rand"

// Noise — источник стохастики для эвристик скоринга.
// Вынесен в интерфейс, чтобы тесты подставляли детерминированный дублер;
// продовая реализация остается случайной.
type Noise interface {
	Float64() float64
	IntN(n int) int
}

// SystemNoise — продовый источник поверх math/rand/v2 (потокобезопасен).
type SystemNoise struct{}

func (SystemNoise) Float64() float64 { return rand.Float64() }
func (SystemNoise) IntN(n int) int   { return rand.Intn(n) }
