// Package shaders holds the GLSL sources of the renderer. The compiled
// SPIR-V is built into cmd/ffp as a fallback for missing shader files.
package shaders

//go:generate glslc shader.vert -o shader.vert.spv
//go:generate glslc shader.frag -o shader.frag.spv
//go:generate glslc shader.vert -o triangle.vert.spv
//go:generate glslc shader.frag -o triangle.frag.spv
