package burn

// TrainingExample pairs a SequenceLength run of features with the normalized
// temperature of the step that follows it.
type TrainingExample struct {
	Sequence []FeatureVector
	Target   float64
}

// BuildDataset slides a SequenceLength window across the features of obs with
// stride 1. It produces len(obs) - SequenceLength - 1 examples and fails with
// *InsufficientDataError when obs has fewer than MinTrainingPoints entries.
func BuildDataset(obs []Observation) ([]TrainingExample, error) {
	if len(obs) < MinTrainingPoints {
		return nil, &InsufficientDataError{Required: MinTrainingPoints, Got: len(obs)}
	}

	features := EngineerFeatures(Temperatures(obs))
	n := len(features) - SequenceLength - 1
	examples := make([]TrainingExample, n)

	for i := range n {
		examples[i] = TrainingExample{
			Sequence: features[i : i+SequenceLength : i+SequenceLength],
			Target:   features[i+SequenceLength].NormalizedTemp,
		}
	}

	return examples, nil
}
