// Package extract turns raw file bytes into plain text.
//
// A Registry routes each file to a format handler by MIME type,
// resolved from the file extension first and content sniffing second.
// Formats nobody registered fail with domain.ErrUnsupportedFormat.
package extract
