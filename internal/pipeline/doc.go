// Package pipeline prepares note Markdown for the external converters.
//
// This package handles the text stages that run before any subprocess:
//   - Markdown preprocessing (line endings, comments, highlights, wikilinks;
//     fenced code is left alone)
//   - Image discovery via the goldmark AST
//   - Image destination rewriting to vault-rooted paths
//
// Spawning pandoc, typst and the rasterizer is handled by the root notes2pdf
// package. This separation keeps the pipeline pure: it never touches the
// filesystem beyond path arithmetic, and never runs a process.
package pipeline
