// Package trial samples a heart-rate source during timed exertion trials.
//
// A Recorder polls the monitor's current value once per interval and
// appends (elapsed, bpm) samples to the trial series; samples can be
// streamed to a Sink such as the per-participant CSVSink. Helpers derive
// resting heart rate and the Karvonen training zone used to color live
// readings.
package trial
