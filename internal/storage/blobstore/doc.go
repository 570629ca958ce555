// Package blobstore holds artifact payloads as flat {guid}.{format}
// files.
//
// Blobs are immutable and carry no index of their own: the metadata
// table references them by GUID and format, and the directory listing
// is the ground truth for orphan sweeps. Writes go through temp file
// and atomic rename, so a reader never observes a partial payload and
// concurrent writers of distinct GUIDs never conflict.
package blobstore
