// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	types "github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compositeShaderWGSL samples one input texture, applies an optional
// 90° clockwise rotation, scales it into a destination rectangle of
// the output frame and writes packed RGBA8 pixels into the frame
// storage buffer. A mode of 2 ignores the input and fills the
// rectangle with the clear color.
const compositeShaderWGSL = `
struct Params {
    dst_min: vec2<u32>,
    dst_max: vec2<u32>,
    src_size: vec2<u32>,
    out_width: u32,
    mode: u32,
    clear_color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var src: texture_2d<f32>;
@group(1) @binding(0) var<storage, read_write> dst: array<u32>;

// R in the low byte, little-endian RGBA8.
fn pack_rgba(c: vec4<f32>) -> u32 {
    let r = u32(clamp(c.r, 0.0, 1.0) * 255.0 + 0.5);
    let g = u32(clamp(c.g, 0.0, 1.0) * 255.0 + 0.5);
    let b = u32(clamp(c.b, 0.0, 1.0) * 255.0 + 0.5);
    let a = u32(clamp(c.a, 0.0, 1.0) * 255.0 + 0.5);
    return r | (g << 8u) | (b << 16u) | (a << 24u);
}

@compute @workgroup_size(8, 8)
fn composite(@builtin(global_invocation_id) gid: vec3<u32>) {
    let x = gid.x + params.dst_min.x;
    let y = gid.y + params.dst_min.y;
    if (x >= params.dst_max.x || y >= params.dst_max.y) {
        return;
    }
    let idx = y * params.out_width + x;
    if (params.mode == 2u) {
        dst[idx] = pack_rgba(params.clear_color);
        return;
    }
    let w = params.dst_max.x - params.dst_min.x;
    let h = params.dst_max.y - params.dst_min.y;
    var u = (f32(x - params.dst_min.x) + 0.5) / f32(w);
    var v = (f32(y - params.dst_min.y) + 0.5) / f32(h);
    if (params.mode == 1u) {
        // 90° clockwise: output(u, v) samples input(v, 1 - u).
        let t = u;
        u = v;
        v = 1.0 - t;
    }
    let sx = min(u32(u * f32(params.src_size.x)), params.src_size.x - 1u);
    let sy = min(u32(v * f32(params.src_size.y)), params.src_size.y - 1u);
    let c = textureLoad(src, vec2<u32>(sx, sy), 0);
    dst[idx] = pack_rgba(c);
}
`

// paramsSize is the byte size of the Params uniform (std140-compatible).
const paramsSize = 48

// compositeShader holds the compiled pipeline shared by all contexts
// of one backend.
type compositeShader struct {
	module       hal.ShaderModule
	inputLayout  hal.BindGroupLayout
	outputLayout hal.BindGroupLayout
	layout       hal.PipelineLayout
	pipeline     hal.ComputePipeline
}

// newCompositeShader compiles the WGSL source and builds the compute
// pipeline.
func newCompositeShader(device hal.Device) (*compositeShader, error) {
	spirv, err := compileWGSL(compositeShaderWGSL)
	if err != nil {
		return nil, err
	}

	s := &compositeShader{}
	s.module, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "duocam_composite",
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	s.inputLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "composite_input_layout",
		Entries: []types.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: types.ShaderStageCompute,
				Buffer: &types.BufferBindingLayout{
					Type:           types.BufferBindingTypeUniform,
					MinBindingSize: paramsSize,
				},
			},
			{
				Binding:    1,
				Visibility: types.ShaderStageCompute,
				Texture: &types.TextureBindingLayout{
					SampleType:    types.TextureSampleTypeFloat,
					ViewDimension: types.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		s.destroy(device)
		return nil, fmt.Errorf("create input bind group layout: %w", err)
	}

	s.outputLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "composite_output_layout",
		Entries: []types.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: types.ShaderStageCompute,
				Buffer: &types.BufferBindingLayout{
					Type: types.BufferBindingTypeStorage,
				},
			},
		},
	})
	if err != nil {
		s.destroy(device)
		return nil, fmt.Errorf("create output bind group layout: %w", err)
	}

	s.layout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "composite_layout",
		BindGroupLayouts: []hal.BindGroupLayout{s.inputLayout, s.outputLayout},
	})
	if err != nil {
		s.destroy(device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	s.pipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "composite_pipeline",
		Layout: s.layout,
		Compute: hal.ComputeState{
			Module:     s.module,
			EntryPoint: "composite",
		},
	})
	if err != nil {
		s.destroy(device)
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}

	return s, nil
}

// destroy releases pipeline resources in reverse creation order.
func (s *compositeShader) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if s.pipeline != nil {
		device.DestroyComputePipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.layout != nil {
		device.DestroyPipelineLayout(s.layout)
		s.layout = nil
	}
	if s.outputLayout != nil {
		device.DestroyBindGroupLayout(s.outputLayout)
		s.outputLayout = nil
	}
	if s.inputLayout != nil {
		device.DestroyBindGroupLayout(s.inputLayout)
		s.inputLayout = nil
	}
	if s.module != nil {
		device.DestroyShaderModule(s.module)
		s.module = nil
	}
}

// compileWGSL compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
