// Package modal extracts modal parameters from a measured frequency
// response function (FRF).
//
// Three kernels are provided:
//
//   - FitCircle: algebraic least-squares circle through the Nyquist plot of a
//     near-resonance slice ("Theoretical and Experimental Modal Analysis", p. 221)
//   - ExtractTEMA: resonance frequency, damping and modal constant from the
//     phase samples around a peak and its fitted circle
//   - FitRFP: global rational fraction polynomial fit H = P(jω)/Q(jω)
//     refined with Levenberg-Marquardt
//
// All kernels are pure and never mutate their inputs.
package modal
