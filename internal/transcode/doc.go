// Package transcode turns an uploaded source file into a multi-bitrate HLS
// tree using ffmpeg.
//
// Executor is the contract the workflow worker depends on; FFmpegExecutor is
// the production implementation. It probes the source with ffprobe, keeps
// the configured renditions that do not upscale the source, and runs a single
// ffmpeg invocation that writes every variant plus master.m3u8. Output is
// written into a hidden sibling directory and renamed into place only when
// ffmpeg succeeds, so a failed job never leaves a half-written tree behind.
package transcode
