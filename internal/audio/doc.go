// Package audio writes metadata into downloaded files and playlists next to them.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	written, err := tagger.TagTrack(album, index, artwork)
//
// Each field follows an EditAction. Files that already carry a readable tag
// are left alone and TagTrack reports written == false.
//
// # Playlists
//
//	w := audio.NewPlaylistWriter(model.PlaylistFormatM3U, true)
//	path, err := w.Write(album, downloadedTracks)
//
// Supported formats: M3U (optionally extended), PLS, WPL and ZPL.
package audio
