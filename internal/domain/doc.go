// Package domain models air-quality sensor readings and their pollution
// severity classification.
//
// # Readings
//
// Each record comes from one of the solar-tree monitoring stations ("zones")
// and carries raw readings keyed by indicator name, exactly as they appear in
// the training data:
//
//	Temperatura (°)   degrees Celsius, 0–50
//	Humedad (%)       relative humidity, 0–99
//	CO2 (PPM)         parts per million, 0–972
//	NO2 (PPM)         parts per million, 0–0.11
//	Polución (ICA)    air quality index, the training target
//
// # Feature Encoding
//
// The trained classifiers consume ordinal severities rather than raw values.
// [Discretizer] maps a reading to a bucket 1–5 using five closed sub-ranges per
// indicator. The first containing sub-range wins; readings below the table
// score 1 and readings above it score 5, while readings in the small gaps
// between sub-ranges take the severity of the sub-range below. Temperature is
// the one descending table: cold readings inside it score 5.
//
// [FeatureBuilder] turns a [RawRecord] into a [FeatureRow]: one 0/1 column per
// known zone (all zeros for an unknown zone unless built [WithStrictZones]),
// followed by one severity column per declared indicator. Readings for
// undeclared indicators pass through untouched.
//
// # Classification
//
// A [Classifier] maps a row to a label 1–5, and a [LabelTable] names it:
//
//	1 muy baja | 2 baja | 3 media | 4 alta | 5 muy alta
//
// [ModelRegistry] holds the selectable models with their published metrics.
package domain
