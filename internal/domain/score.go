package domain

import (
	"fmt"
	"math"
)

const (
	// MinScore y MaxScore delimitan la escala entera del modelo.
	MinScore = 0
	MaxScore = 10
)

// RawScore es la salida del modelo ya normalizada a un entero en [0,10].
type RawScore int

// NormalizeScore redondea la salida cruda del modelo y la recorta a [0,10].
//
// El redondeo es half-to-even (4.5 → 4, 5.5 → 6), el mismo que usaba el
// pipeline de entrenamiento, para que un score servido coincida con el
// score con el que se etiquetó el dataset.
func NormalizeScore(raw float64) (RawScore, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, raw)
	}
	v := math.RoundToEven(raw)
	if v < MinScore {
		v = MinScore
	}
	if v > MaxScore {
		v = MaxScore
	}
	return RawScore(v), nil
}

// Int devuelve el score como int.
func (s RawScore) Int() int {
	return int(s)
}
