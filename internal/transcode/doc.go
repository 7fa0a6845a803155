// Package transcode converts media files into their compressed form.
//
// Two engines satisfy the Engine interface: an ffmpeg wrapper whose encoder
// parameters come from configuration, and the drapto library with its own
// opinionated AV1 settings. CheckIntegrity and CompareDurations back the
// post-transcode verification stage via ffprobe.
package transcode
