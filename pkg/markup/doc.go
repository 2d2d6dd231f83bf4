// Package markup holds the small text helpers shared by the renderers and
// transports:
//   - HTML escaping and a few tag builders (Telegram-style HTML-lite)
//   - byte-bounded UTF-8 truncation
//   - markdown stripping for plain-text surfaces
package markup
