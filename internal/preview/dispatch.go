package preview

import "context"

// extractor fills j.acc from the source and reports one result per step.
type extractor func(ctx context.Context, j *job) []StepResult

type dispatchKey struct {
	format      Format
	compression Compression
}

// extractors holds exactly one extractor per supported (format,
// compression) pair. The pairs are disjoint by construction of Detect.
var extractors = map[dispatchKey]extractor{
	{FormatArcGIS, CompressionNone}: extractArcGIS,
	{FormatGeoJSON, CompressionNone}: func(ctx context.Context, j *job) []StepResult {
		return []StepResult{runStream(ctx, j, "geojson.stream", streamFeatures)}
	},
	{FormatGeoJSON, CompressionZip}: func(ctx context.Context, j *job) []StepResult {
		return runZip(ctx, j, "geojson.entry", streamFeatures)
	},
	{FormatCSV, CompressionNone}: func(ctx context.Context, j *job) []StepResult {
		return []StepResult{runStream(ctx, j, "csv.stream", streamRows)}
	},
	{FormatCSV, CompressionZip}: func(ctx context.Context, j *job) []StepResult {
		return runZip(ctx, j, "csv.entry", streamRows)
	},
}

// dispatch runs the extractor for desc. It returns false, and leaves acc
// untouched, when no extractor handles desc.
func dispatch(ctx context.Context, j *job) ([]StepResult, bool) {
	ext, ok := extractors[dispatchKey{j.desc.Format, j.desc.Compression}]
	if !ok {
		return nil, false
	}
	return ext(ctx, j), true
}
