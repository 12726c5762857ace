package telemetry

// Span names used for instrumentation.
const (
	SpanHealthRaster = "survey.health_raster"
	SpanPlaceSensors = "survey.place_sensors"
	SpanFieldSave    = "fields.save"
	SpanFieldImport  = "fields.import"
)
