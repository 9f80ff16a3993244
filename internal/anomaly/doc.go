// Package anomaly detects outlying MySQL server metric samples with an
// isolation forest.
//
// A Scaler standardises samples over a fixed feature order. A Model grows
// an ensemble of random partition trees over the scaled vectors and scores
// new vectors by their average isolation depth; the decision boundary is
// calibrated from the configured contamination so that negative scores are
// outliers. A Detector pairs the two for a single session.
//
// Training with too few samples, or scoring before any training succeeded,
// yields a *NotReadyError that reports how many samples are still needed.
// Samples whose metric names differ from the trained set yield a
// *FeatureMismatchError.
package anomaly
