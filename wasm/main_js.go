//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/voxelsplace/voxbuild/api"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/raytrace"
	"github.com/voxelsplace/voxbuild/shapes"
)

func bytesArg(v js.Value) []byte {
	buf := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(buf, v)
	return buf
}

func bytesResult(out []byte, err error) any {
	if err != nil {
		return js.ValueOf(err.Error())
	}
	arr := js.Global().Get("Uint8Array").New(len(out))
	js.CopyBytesToJS(arr, out)
	return arr
}

// options reads an optional {axes, mode, material, faceMaterial} object.
func options(v js.Value) (api.Options, error) {
	opts := api.DefaultOptions()
	// wasm has a single thread.
	opts.Workers = 1
	if v.Type() != js.TypeObject {
		return opts, nil
	}
	if a := v.Get("axes"); a.Type() == js.TypeString {
		axes, err := raytrace.ParseAxisSet(a.String())
		if err != nil {
			return opts, err
		}
		opts.Axes = axes
	}
	if m := v.Get("mode"); m.Type() == js.TypeString {
		mode, err := raytrace.ParseTraceMode(m.String())
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}
	if m := v.Get("material"); m.Type() == js.TypeNumber {
		opts.Material = uint8(m.Int())
	}
	if m := v.Get("faceMaterial"); m.Type() == js.TypeNumber {
		opts.FaceMaterial = uint8(m.Int())
	}
	return opts, nil
}

func glb2voxpack(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing glb bytes")
	}
	var optArg js.Value
	if len(args) > 1 {
		optArg = args[1]
	}
	opts, err := options(optArg)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesResult(api.VoxelizeGLB(context.Background(), bytesArg(args[0]), opts))
}

func voxpack2glb(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing voxpack bytes")
	}
	return bytesResult(api.VoxpackToGLB(bytesArg(args[0]), nil))
}

func editVoxpack(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing voxpack bytes or edits JSON")
	}
	opts := api.DefaultOptions()
	return bytesResult(api.EditVoxpack(context.Background(), bytesArg(args[0]), []byte(args[1].String()), opts))
}

func sphereVoxpack(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing radius or material")
	}
	r := args[0].Float()
	probe := shapes.Sphere{Radius: r}
	s := shapes.CenteredSphere(probe.VolumeSize(), r, uint8(args[1].Int()))
	return bytesResult(api.ShapeToVoxpack(context.Background(), s, api.DefaultOptions()))
}

func cubeVoxpack(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing edge or material")
	}
	c := shapes.Cube{Size: grid.Splat(args[0].Int()), Material: uint8(args[1].Int())}
	return bytesResult(api.ShapeToVoxpack(context.Background(), c, api.DefaultOptions()))
}

func voxpackInfo(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing voxpack bytes")
	}
	info, err := api.Info(bytesArg(args[0]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return js.ValueOf(info.String())
}

func main() {
	js.Global().Set("glb2voxpack", js.FuncOf(glb2voxpack))
	js.Global().Set("voxpack2glb", js.FuncOf(voxpack2glb))
	js.Global().Set("editVoxpack", js.FuncOf(editVoxpack))
	js.Global().Set("sphereVoxpack", js.FuncOf(sphereVoxpack))
	js.Global().Set("cubeVoxpack", js.FuncOf(cubeVoxpack))
	js.Global().Set("voxpackInfo", js.FuncOf(voxpackInfo))
	select {}
}
