package assets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/devblok/ffp/gfx"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

const shaderSuffix = ".spv"

// package errors
var (
	ErrShaderStage = errors.New("invalid shader stage")
	ErrShaderCode  = errors.New("not a SPIR-V module")
)

// ShaderStage infers the stage from the file name. The name must
// end with .vert.spv or .frag.spv.
func ShaderStage(name string) (gfx.ShaderStage, error) {
	base := path.Base(strings.Replace(name, "\\", "/", -1))
	if !strings.HasSuffix(base, shaderSuffix) {
		return 0, ErrShaderStage
	}
	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) < 2 {
		return 0, ErrShaderStage
	}

	switch nodes[len(nodes)-1] {
	case "vert":
		return gfx.VertexStage, nil
	case "frag":
		return gfx.FragmentStage, nil
	default:
		return 0, ErrShaderStage
	}
}

// LoadShader reads compiled SPIR-V from src and describes it for
// gfx.Device.CreateShader.
func LoadShader(src Source, name string, uniforms uint32) (gfx.ShaderCreateInfo, error) {
	stage, err := ShaderStage(name)
	if err != nil {
		return gfx.ShaderCreateInfo{}, fmt.Errorf("%s: %w", name, err)
	}

	code, err := src.ReadFile(name)
	if err != nil {
		return gfx.ShaderCreateInfo{}, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return gfx.ShaderCreateInfo{}, fmt.Errorf("%s: code size %d: %w", name, len(code), ErrShaderCode)
	}
	if binary.LittleEndian.Uint32(code) != SPIRVMagic {
		return gfx.ShaderCreateInfo{}, fmt.Errorf("%s: bad magic: %w", name, ErrShaderCode)
	}

	return gfx.ShaderCreateInfo{
		Code:              code,
		EntryPoint:        "main",
		Format:            gfx.ShaderFormatSPIRV,
		Stage:             stage,
		NumUniformBuffers: uniforms,
	}, nil
}
