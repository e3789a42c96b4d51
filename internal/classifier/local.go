package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"silo-backend/internal/models"
)

// LocalModel is a linear risk model loaded from a JSON file. It scores
// features with a logistic over a weighted sum and maps the score to a
// risk class with two cut points.
type LocalModel struct {
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
	RiskyCut     float64            `json:"risky_cut"`   // score above which grain is risky
	SpoiledCut   float64            `json:"spoiled_cut"` // score above which grain is spoiled
}

// LocalClassifier scores risk without an external service
type LocalClassifier struct {
	model *LocalModel
}

// NewLocalClassifier loads the model from file
func NewLocalClassifier(modelPath string) (*LocalClassifier, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var model LocalModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}

	log.Printf("Loaded risk model from %s (risky cut %.2f, spoiled cut %.2f)",
		modelPath, model.RiskyCut, model.SpoiledCut)

	return &LocalClassifier{model: &model}, nil
}

// Classify scores the features with the linear model
func (c *LocalClassifier) Classify(_ context.Context, features Features) (*models.RiskResult, error) {
	score := c.model.Intercept

	inputs := map[string]float64{
		"temperature": features.Temperature,
		"humidity":    features.Humidity,
		"voc":         features.VOC,
		"co2":         features.CO2,
		"moisture":    features.Moisture,
	}
	for name, value := range inputs {
		if coef, ok := c.model.Coefficients[name]; ok {
			score += coef * value
		}
	}

	// Squash to 0-1 so cut points are comparable across models.
	risk := 1.0 / (1.0 + math.Exp(-score))

	class := models.RiskSafe
	switch {
	case risk >= c.model.SpoiledCut:
		class = models.RiskSpoiled
	case risk >= c.model.RiskyCut:
		class = models.RiskRisky
	}

	// Confidence grows with distance from the nearest cut point.
	confidence := math.Min(1, 2*nearestCutDistance(risk, c.model.RiskyCut, c.model.SpoiledCut))

	return &models.RiskResult{
		DeviceID:   features.DeviceID,
		Timestamp:  time.Now(),
		RiskClass:  class,
		RiskScore:  risk,
		Confidence: confidence,
	}, nil
}

func nearestCutDistance(risk float64, cuts ...float64) float64 {
	nearest := math.Inf(1)
	for _, cut := range cuts {
		if d := math.Abs(risk - cut); d < nearest {
			nearest = d
		}
	}
	return nearest
}

// WriteSampleModel writes a usable starter model to path
func WriteSampleModel(path string) error {
	model := LocalModel{
		Coefficients: map[string]float64{
			"temperature": 0.08,
			"humidity":    0.05,
			"voc":         0.004,
			"co2":         0.001,
			"moisture":    0.1,
		},
		Intercept:  -8.0,
		RiskyCut:   0.5,
		SpoiledCut: 0.85,
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("Created sample risk model at %s", path)
	return nil
}
