// Package preview samples remote datasets of unknown format.
//
// Given a source URL, the package decides what the source is and reads just
// enough of it to return its field names and up to ten sample records.
//
// # Pipeline
//
//  1. [Detect] classifies the URL into a [SourceDescriptor] (format plus
//     compression) from its shape alone.
//  2. The dispatcher picks the one extractor for that pair: ArcGIS layer,
//     GeoJSON, CSV, or a zip-wrapped GeoJSON/CSV.
//  3. The extractor fetches the source and fills an [Accumulator], stopping
//     as soon as ten records are collected, then closes the response body
//     without reading the rest.
//  4. [Assemble] packages the accumulator into a [Result].
//
// # Failures
//
// A preview never returns an error. Every network and parse step reports a
// [StepResult] with a code from [MapError], and the result's [Status] says
// whether the preview is complete, partial, empty, failed, or unsupported.
package preview
