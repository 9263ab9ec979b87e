// Package ioutils provides the file system and image helpers used by the
// downloader. Functions that start new I/O take a context and refuse to
// start once it is cancelled.
//
//	created, err := ioutils.EnsureDir(ctx, album.Path)
//	size, exists, err := ioutils.FileSize(track.Path)
//	data, mime, err := ioutils.NewImageService().Prepare(ctx, cover, mime, opts)
package ioutils
