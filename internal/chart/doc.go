// Package chart composes the merged CPT chart and renders it.
//
// Compose turns processed soundings into a Figure: one line per sounding
// against a shared elevation axis, the x-axis on top, and for the SBT index
// the soil zone bands with their boundary lines. HTMLRenderer draws the
// figure with go-echarts; RasterRenderer draws PNG and PDF with gonum/plot.
package chart
