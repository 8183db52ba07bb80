// Package render writes ranked score records as a browsable HTML grid with a
// JSON sidecar, and reads the scores back out of a rendered document.
//
// Every grid cell carries its scores as data attributes formatted with the
// shortest exact representation, so ReadScores reproduces the rendered
// custom scores bit for bit.
package render
