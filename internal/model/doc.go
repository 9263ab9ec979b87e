// Package model defines the album and track records shared by the
// downloader packages, and the template formatter that turns them into
// file system paths.
//
// # Album
//
//	album := model.NewAlbum("Artist", "Title", artworkURL, releaseDate, pathConfig)
//	fmt.Println(album.Path)        // where to save the album
//	fmt.Println(album.ArtworkPath) // where to save cover art
//
// # Track
//
//	track := model.NewTrack(album, 1, "Song Title", 180.5, "", mp3URL, trackConfig)
//	fmt.Println(track.Path)
//
// # Templates
//
// Available placeholders: {artist}, {album}, {year}, {month}, {day} and,
// in track templates only, {title} and {tracknum}. Rendered names are passed
// through Sanitize.
package model
