// Package bandcamp extracts album data and discography links from Bandcamp
// HTML pages. It does no network I/O.
//
// # Album pages
//
//	parser := bandcamp.NewParser(pathConfig, trackConfig)
//	album, err := parser.ExtractAlbum(page)
//
// Pages embed the album either in a data-tralbum attribute (HTML escaped
// JSON) or, on older pages, in a TralbumData JavaScript variable that needs
// repairing before it decodes as JSON. Failures wrap ErrNoAlbumData or
// ErrSerialization.
//
// # Discography
//
//	musicURL, err := bandcamp.FindMusicPageURL(seedPage)
//	urls, err := bandcamp.ExtractAlbumURLs(musicPage)
//
// ExtractAlbumURLs returns ErrNoAlbumFound rather than an empty list so
// callers can fall back to the seed URL.
package bandcamp
