package preview

import (
	"regexp"
	"strings"
)

// Format identifies the shape of a remote source.
type Format string

const (
	FormatArcGIS  Format = "ARCGIS"
	FormatGeoJSON Format = "GEOJSON"
	FormatCSV     Format = "CSV"
	FormatUnknown Format = "UNKNOWN"
)

// Compression identifies the container wrapping a source.
// The zero value means the source is not wrapped.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionZip  Compression = "ZIP"
)

// arcgisPattern matches ArcGIS service layer URLs such as
// ".../MapServer/3" or ".../FeatureServer/0/".
var arcgisPattern = regexp.MustCompile(`(Map|Feature)Server/\d+/?$`)

// SourceDescriptor is the classification of a source URL.
// It is created once per request by Detect and never modified.
type SourceDescriptor struct {
	URL         string
	Format      Format
	Compression Compression
}

// suffixRules are checked in order after the ArcGIS pattern.
var suffixRules = []struct {
	suffix      string
	format      Format
	compression Compression
}{
	{".geojson", FormatGeoJSON, CompressionNone},
	{".geojson.zip", FormatGeoJSON, CompressionZip},
	{".csv", FormatCSV, CompressionNone},
	{".csv.zip", FormatCSV, CompressionZip},
}

// Detect classifies a source URL by its shape alone. No I/O is performed.
// The first matching rule wins; the ArcGIS pattern takes precedence over
// file extensions.
func Detect(source string) SourceDescriptor {
	desc := SourceDescriptor{URL: source, Format: FormatUnknown}

	if arcgisPattern.MatchString(source) {
		desc.Format = FormatArcGIS
		return desc
	}

	for _, rule := range suffixRules {
		if strings.HasSuffix(source, rule.suffix) {
			desc.Format = rule.format
			desc.Compression = rule.compression
			return desc
		}
	}

	return desc
}

// Supported reports whether an extractor exists for the descriptor.
func (d SourceDescriptor) Supported() bool {
	_, ok := extractors[dispatchKey{d.Format, d.Compression}]
	return ok
}
