//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/hueswap/assets"
	"github.com/MeKo-Tech/hueswap/internal/recolor"
)

// recolorPixels is called from JavaScript with a canvas ImageData buffer:
//
//	const img = ctx.getImageData(0, 0, w, h);
//	const res = hueswapRecolor(img.data, JSON.stringify([{from: 0, to: 120}]));
//	ctx.putImageData(img, 0, 0);
//
// The buffer is modified in place. The result object carries either
// {matched: [...]} or {error: "..."}.
func recolorPixels(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]interface{}{"error": "expected (pixels, rulesJSON)"}
	}

	pixels := args[0]
	if pixels.Type() != js.TypeObject || pixels.Get("length").Type() != js.TypeNumber {
		return map[string]interface{}{"error": "pixels must be a Uint8ClampedArray"}
	}

	rules, err := rulesFromJS(args[1])
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	buf := make([]byte, pixels.Get("length").Int())
	js.CopyBytesToGo(buf, asUint8Array(pixels))

	// js/wasm runs on one thread; a single worker avoids pointless chunking.
	stats, err := recolor.New(recolor.Config{Workers: 1}).Recolor(context.Background(), buf, rules)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	js.CopyBytesToJS(asUint8Array(pixels), buf)

	matched := make([]interface{}, len(stats.Matched))
	for i, m := range stats.Matched {
		matched[i] = m
	}

	return map[string]interface{}{"matched": matched}
}

// presetRules returns the JSON rule list of a built-in preset, or the preset names without arguments.
func presetRules(this js.Value, args []js.Value) interface{} {
	if len(args) == 0 {
		names := assets.PresetNames()
		out := make([]interface{}, len(names))
		for i, n := range names {
			out[i] = n
		}
		return out
	}

	data, err := assets.Preset(args[0].String())
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return string(data)
}

func rulesFromJS(v js.Value) ([]recolor.Rule, error) {
	if v.Type() != js.TypeString {
		return nil, errors.New("rules must be a JSON string")
	}
	return recolor.UnmarshalRules([]byte(v.String()))
}

// asUint8Array views a Uint8ClampedArray as a Uint8Array, which CopyBytesTo* require.
func asUint8Array(v js.Value) js.Value {
	return js.Global().Get("Uint8Array").New(v.Get("buffer"), v.Get("byteOffset"), v.Get("byteLength"))
}

func main() {
	c := make(chan struct{})

	js.Global().Set("hueswapRecolor", js.FuncOf(recolorPixels))
	js.Global().Set("hueswapPreset", js.FuncOf(presetRules))

	fmt.Println("hueswap WASM module loaded")
	<-c
}
