package transcode

import (
	draptolib "github.com/five82/drapto"
)

// progressReporter adapts the drapto Reporter interface to the flat
// ProgressUpdate callback. Only stage and encoding progress map onto
// updates; the remaining events carry detail the catalog does not track.
type progressReporter struct {
	callback func(ProgressUpdate)
}

func newProgressReporter(callback func(ProgressUpdate)) *progressReporter {
	return &progressReporter{callback: callback}
}

func (r *progressReporter) StageProgress(s draptolib.StageProgress) {
	update := ProgressUpdate{
		Percent: float64(s.Percent),
		Stage:   s.Stage,
		Message: s.Message,
	}
	if s.ETA != nil {
		update.ETA = *s.ETA
	}
	r.callback(update)
}

func (r *progressReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.callback(ProgressUpdate{
		Percent: float64(s.Percent),
		Stage:   "encoding",
		Speed:   float64(s.Speed),
		FPS:     float64(s.FPS),
		ETA:     s.ETA,
	})
}

func (r *progressReporter) Hardware(draptolib.HardwareSummary)                {}
func (r *progressReporter) Initialization(draptolib.InitializationSummary)    {}
func (r *progressReporter) CropResult(draptolib.CropSummary)                  {}
func (r *progressReporter) EncodingConfig(draptolib.EncodingConfigSummary)    {}
func (r *progressReporter) EncodingStarted(uint64)                            {}
func (r *progressReporter) ValidationComplete(draptolib.ValidationSummary)    {}
func (r *progressReporter) EncodingComplete(draptolib.EncodingOutcome)        {}
func (r *progressReporter) Warning(string)                                    {}
func (r *progressReporter) Error(draptolib.ReporterError)                     {}
func (r *progressReporter) OperationComplete(string)                          {}
func (r *progressReporter) BatchStarted(draptolib.BatchStartInfo)             {}
func (r *progressReporter) FileProgress(draptolib.FileProgressContext)        {}
func (r *progressReporter) BatchComplete(draptolib.BatchSummary)              {}

var _ draptolib.Reporter = (*progressReporter)(nil)
