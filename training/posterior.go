package training

import "math"

// Posterior converts a raw model output (logit) into a posterior value. The
// model family decides which normalization applies; metric computers that
// work on logits bypass it.
type Posterior func(logit float64) float64

// SigmoidPosterior is the normalization for binary classification outputs.
func SigmoidPosterior(logit float64) float64 {
	return 1 / (1 + math.Exp(-logit))
}

// IdentityPosterior passes regression outputs through unchanged.
func IdentityPosterior(output float64) float64 {
	return output
}
