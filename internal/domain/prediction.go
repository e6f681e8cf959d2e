package domain

import (
	"fmt"
	"time"
)

// interpretations y percentageRanges son tablas de solo lectura indexadas
// por score. Se comparten entre goroutines sin sincronización.
var (
	interpretations = [MaxScore + 1]string{
		"Very sharp drop",
		"Significant drop",
		"Moderate drop",
		"Slight drop",
		"Very slight drop",
		"No significant change",
		"Very slight rise",
		"Slight rise",
		"Moderate rise",
		"Significant rise",
		"Very sharp rise",
	}

	percentageRanges = [MaxScore + 1]string{
		"≤ -2.5%",
		"-2% a -2.5%",
		"-1.5% a -2%",
		"-1% a -1.5%",
		"-0.5% a -1%",
		"±0.5%",
		"+0.5% a +1%",
		"+1% a +1.5%",
		"+1.5% a +2%",
		"+2% a +2.5%",
		"≥ +2.5%",
	}
)

// Prediction es la lectura humana de un score: interpretación y rango de
// movimiento de precio esperado.
type Prediction struct {
	Score           int    `json:"score"`
	Interpretation  string `json:"interpretation"`
	PercentageRange string `json:"percentage_range"`
}

// Project traduce un score a su Prediction.
// Un score fuera de [0,10] es un error de programación (NormalizeScore ya
// recorta), así que entra en pánico en lugar de devolver error.
func Project(score int) Prediction {
	if score < MinScore || score > MaxScore {
		panic(fmt.Sprintf("domain.Project: score %d out of range [%d,%d]", score, MinScore, MaxScore))
	}
	return Prediction{
		Score:           score,
		Interpretation:  interpretations[score],
		PercentageRange: percentageRanges[score],
	}
}

// PredictionState es el estado derivado de un stream de predicción.
// No se persiste: se reconstruye plegando eventos.
type PredictionState struct {
	NewsID     string
	Ticker     string
	Date       time.Time
	Title      string
	URL        string
	Prediction Prediction
	detected   bool
}

// IsEmpty devuelve true si todavía no se aplicó ningún evento.
func (s PredictionState) IsEmpty() bool {
	return s.Ticker == ""
}

// HasDetection devuelve true si el stream ya registró un sentimiento.
func (s PredictionState) HasDetection() bool {
	return s.detected
}

// withFeeling devuelve una copia con los datos de la noticia y el score proyectado.
func (s PredictionState) withFeeling(p AssetFeelingDetected) PredictionState {
	s.NewsID = p.NewsID
	s.Ticker = p.Ticker
	s.Date = p.Date
	s.Title = p.Title
	s.URL = p.URL
	s.Prediction = Project(p.Score)
	s.detected = true
	return s
}
